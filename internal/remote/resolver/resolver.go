// Package resolver parses scan root arguments into local filesystem paths
// or remote SSH targets.
package resolver

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// DefaultPort is the SSH port used when a Target's URI omits one.
const DefaultPort = 22

// Target names one scan root, local or remote.
type Target struct {
	Remote       bool
	User         string
	Host         string
	Port         int
	Path         string
	SSHOpts      string // extra arguments passed to ssh(1) verbatim
	TransferOpts string // extra arguments passed to the remote transfer step
}

// uriPattern matches ssh:[user@]host[:port]:/path[:ssh_opts[:transfer_opts]]
var uriPattern = regexp.MustCompile(
	`^ssh:(?:([^@:]+)@)?([^:/]+)(?::(\d+))?:(/[^:]*)(?::([^:]*))?(?::([^:]*))?$`)

// Parse interprets arg as either a local path (no "ssh:" prefix) or a
// remote SSH target matching uriPattern.
func Parse(arg string) (*Target, error) {
	if !strings.HasPrefix(arg, "ssh:") {
		return &Target{Remote: false, Path: arg}, nil
	}

	m := uriPattern.FindStringSubmatch(arg)
	if m == nil {
		return nil, fmt.Errorf("invalid remote target %q: expected ssh:[user@]host[:port]:/path[:ssh_opts[:transfer_opts]]", arg)
	}

	port := DefaultPort
	if m[3] != "" {
		p, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, fmt.Errorf("invalid port in %q: %w", arg, err)
		}
		port = p
	}

	return &Target{
		Remote:       true,
		User:         m[1],
		Host:         m[2],
		Port:         port,
		Path:         m[4],
		SSHOpts:      m[5],
		TransferOpts: m[6],
	}, nil
}

// RemotePath joins the target's base path with relPath, producing the full
// path on the remote host. Remote targets are always POSIX hosts reachable
// over ssh, so this uses "path", not "filepath".
func (t *Target) RemotePath(relPath string) string {
	return path.Join(t.Path, relPath)
}

// HostSpec renders the [user@]host portion of an scp/rsync remote address.
func (t *Target) HostSpec() string {
	if t.User != "" {
		return t.User + "@" + t.Host
	}
	return t.Host
}

// String renders the target back to its canonical form, useful for logs.
func (t *Target) String() string {
	if !t.Remote {
		return t.Path
	}
	host := t.Host
	if t.User != "" {
		host = t.User + "@" + host
	}
	return fmt.Sprintf("ssh:%s:%d:%s", host, t.Port, t.Path)
}
