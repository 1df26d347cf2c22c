package transport

import "github.com/duperemote/dupenet/internal/types"

// CommandMsg is the client's opening request, declaring both the scan
// parameters and the encoding/compression it would prefer.
type CommandMsg struct {
	Roots         []string        `json:"roots"`
	Algorithm     types.Algorithm `json:"algorithm"`
	Workers       int             `json:"workers"`
	MediaMode     bool            `json:"media_mode"`
	Encoding      Encoding        `json:"encoding"`
	Compress      bool            `json:"compress"`
}

// ServerHelloMsg is the server's handshake response, reporting what it
// actually negotiated (it may downgrade the client's request).
type ServerHelloMsg struct {
	Encoding Encoding `json:"encoding"`
	Compress bool     `json:"compress"`
}

// ProgressMsg carries bounded-frequency progress updates during a scan.
type ProgressMsg struct {
	Phase             string `json:"phase"`
	ScannedCount      int64  `json:"scanned_count"`
	TotalCountEstimate int64 `json:"total_count_estimate"`
	CurrentPath       string `json:"current_path,omitempty"`
}

// ResultMsg is the final, single message of a session: the full duplicate
// set list plus run statistics.
type ResultMsg struct {
	Sets      []ResultSet `json:"duplicate_sets"`
	Cancelled bool        `json:"cancelled"`
	Stats     ResultStats `json:"stats"`
}

type ResultSet struct {
	Digest    string           `json:"digest"`
	Files     []ResultFile     `json:"files"`
	KeptIndex int              `json:"kept_index"`
}

type ResultFile struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Mtime int64  `json:"mtime"`
}

type ResultStats struct {
	FilesScanned int64 `json:"files_scanned"`
	BytesScanned int64 `json:"bytes_scanned"`
	SetsFound    int   `json:"sets_found"`
}

// ErrorMsg reports a fatal, session-ending error with a stable code.
type ErrorMsg struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// LogLineMsg carries a single log line: a level name and its message.
type LogLineMsg struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
