package client

import (
	"strings"
	"testing"

	"github.com/duperemote/dupenet/internal/remote/transport"
)

func TestDecodeFallbackStreamProgressThenResult(t *testing.T) {
	stream := strings.NewReader(
		`{"type":"progress","progress":{"phase":"hashing","scanned_count":3}}` + "\n" +
			`not json, a stray log line` + "\n" +
			`{"type":"result","result":{"stats":{"files_scanned":10}}}` + "\n",
	)

	var progressSeen []transport.ProgressMsg
	result, err := decodeFallbackStream(stream, func(p transport.ProgressMsg) {
		progressSeen = append(progressSeen, p)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(progressSeen) != 1 || progressSeen[0].Phase != "hashing" {
		t.Errorf("progress = %+v", progressSeen)
	}
	if result.Stats.FilesScanned != 10 {
		t.Errorf("result = %+v", result)
	}
}

func TestDecodeFallbackStreamError(t *testing.T) {
	stream := strings.NewReader(`{"type":"error","error":{"code":2,"message":"boom"}}` + "\n")
	_, err := decodeFallbackStream(stream, nil)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("got %v", err)
	}
}

func TestDecodeFallbackStreamNoResultIsError(t *testing.T) {
	stream := strings.NewReader(`{"type":"progress","progress":{"phase":"walking"}}` + "\n")
	_, err := decodeFallbackStream(stream, nil)
	if err == nil {
		t.Error("expected error when stream ends without a result record")
	}
}
