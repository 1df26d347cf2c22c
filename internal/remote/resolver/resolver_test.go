package resolver

import "testing"

func TestParseLocalPath(t *testing.T) {
	tgt, err := Parse("/var/data")
	if err != nil {
		t.Fatal(err)
	}
	if tgt.Remote {
		t.Error("expected local target")
	}
	if tgt.Path != "/var/data" {
		t.Errorf("Path = %q, want /var/data", tgt.Path)
	}
}

func TestParseRemoteBasic(t *testing.T) {
	tgt, err := Parse("ssh:host:/data")
	if err != nil {
		t.Fatal(err)
	}
	if !tgt.Remote || tgt.Host != "host" || tgt.Path != "/data" || tgt.Port != DefaultPort {
		t.Errorf("unexpected target: %+v", tgt)
	}
}

func TestParseRemoteWithUserAndPort(t *testing.T) {
	tgt, err := Parse("ssh:alice@example.com:2222:/srv/media")
	if err != nil {
		t.Fatal(err)
	}
	if tgt.User != "alice" || tgt.Host != "example.com" || tgt.Port != 2222 || tgt.Path != "/srv/media" {
		t.Errorf("unexpected target: %+v", tgt)
	}
}

func TestParseRemoteWithOpts(t *testing.T) {
	tgt, err := Parse("ssh:host:/data:-o StrictHostKeyChecking=no:-z")
	if err != nil {
		t.Fatal(err)
	}
	if tgt.SSHOpts != "-o StrictHostKeyChecking=no" || tgt.TransferOpts != "-z" {
		t.Errorf("unexpected target: %+v", tgt)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("ssh:"); err == nil {
		t.Error("expected error for malformed URI")
	}
}

func TestTargetStringRoundTrips(t *testing.T) {
	tgt, err := Parse("ssh:bob@host:22:/data")
	if err != nil {
		t.Fatal(err)
	}
	if got := tgt.String(); got != "ssh:bob@host:22:/data" {
		t.Errorf("String() = %q", got)
	}
}
