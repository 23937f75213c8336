package hostseed

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/halvard/rdnsd/internal/qtype"
)

func TestParseHostsFileSkipsCommentsAndSeedsV4(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts")
	content := "# comment\n127.0.0.1 localhost\n192.168.1.1   router   router.lan\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	hosts, err := ParseHostsFile(path)
	if err != nil {
		t.Fatalf("ParseHostsFile failed: %v", err)
	}
	if len(hosts) != 2 {
		t.Fatalf("len(hosts) = %d, want 2", len(hosts))
	}
	rec := hosts["localhost"][0]
	if rec.Type != qtype.A || !bytes.Equal(rec.RDATA, []byte{127, 0, 0, 1}) {
		t.Fatalf("localhost record = %+v", rec)
	}
	if rec.TTL != permanentTTL {
		t.Fatalf("ttl = %d, want max uint32", rec.TTL)
	}
	lanRec := hosts["router.lan"][0]
	if !bytes.Equal(lanRec.RDATA, []byte{192, 168, 1, 1}) {
		t.Fatalf("router.lan record = %+v", lanRec)
	}
}

func TestParseHostsFileSeedsV6(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts")
	content := "::1 ip6-localhost\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	hosts, err := ParseHostsFile(path)
	if err != nil {
		t.Fatalf("ParseHostsFile failed: %v", err)
	}
	rec := hosts["ip6-localhost"][0]
	if rec.Type != qtype.AAAA || len(rec.RDATA) != 16 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestFromInline(t *testing.T) {
	entries := []map[string]string{
		{"10.0.0.1": "gateway.lan"},
		{"10.0.0.2": "printer.lan"},
	}
	hosts, err := FromInline(entries)
	if err != nil {
		t.Fatalf("FromInline failed: %v", err)
	}
	if len(hosts) != 2 {
		t.Fatalf("len(hosts) = %d, want 2", len(hosts))
	}
	if !bytes.Equal(hosts["gateway.lan"][0].RDATA, []byte{10, 0, 0, 1}) {
		t.Fatalf("gateway.lan record = %+v", hosts["gateway.lan"])
	}
}

func TestFromInlineRejectsInvalidIP(t *testing.T) {
	_, err := FromInline([]map[string]string{{"not-an-ip": "bad.lan"}})
	if err == nil {
		t.Fatal("FromInline should reject an invalid IP literal")
	}
}

func TestMergeLaterOverwritesEarlierByName(t *testing.T) {
	base, _ := FromInline([]map[string]string{{"10.0.0.1": "shared.lan"}})
	extra, _ := FromInline([]map[string]string{{"10.0.0.9": "shared.lan"}})

	merged := Merge(base, extra)
	if len(merged) != 1 {
		t.Fatalf("len(merged) = %d, want 1", len(merged))
	}
	if !bytes.Equal(merged["shared.lan"][0].RDATA, []byte{10, 0, 0, 9}) {
		t.Fatalf("shared.lan = %+v, want the extra (later) entry", merged["shared.lan"])
	}
}
