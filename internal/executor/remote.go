package executor

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/duperemote/dupenet/internal/remote/resolver"
)

// rsyncPath names the rsync binary, looked up on $PATH; tests replace it
// with a fake script.
var rsyncPath = "rsync"

// remoteTransfer delegates a single file transfer to rsync: no pure-Go
// client in the dependency corpus reproduces rsync's delta-transfer wire
// protocol, so shelling out to the external binary is the idiomatic
// substitute, the same way the media package shells out to ffmpeg/fpcalc.
// SSHOpts and TransferOpts parsed from the "ssh:" destination URI
// (internal/remote/resolver) are forwarded verbatim, satisfying the "rsync
// opts are forwarded to the transfer tool" requirement.
func remoteTransfer(src string, tgt *resolver.Target, relPath string) error {
	args := []string{"-a", "--mkpath"}
	if tgt.TransferOpts != "" {
		args = append(args, strings.Fields(tgt.TransferOpts)...)
	}
	args = append(args, "-e", sshCommand(tgt), src, remoteSpec(tgt, relPath))

	cmd := exec.Command(rsyncPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("rsync %s: %w: %s", src, err, stderr.String())
	}
	return nil
}

// sshCommand builds the -e argument rsync uses to reach the remote host,
// folding in the port and any extra ssh(1) options from the target URI.
func sshCommand(tgt *resolver.Target) string {
	cmd := fmt.Sprintf("ssh -p %d", tgt.Port)
	if tgt.SSHOpts != "" {
		cmd += " " + tgt.SSHOpts
	}
	return cmd
}

// remoteSpec renders the rsync destination argument: [user@]host:path.
func remoteSpec(tgt *resolver.Target, relPath string) string {
	return fmt.Sprintf("%s:%s", tgt.HostSpec(), tgt.RemotePath(relPath))
}
