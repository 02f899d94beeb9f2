package enums

import "testing"

func TestUploadStatusIsTerminal(t *testing.T) {
	cases := map[UploadStatus]bool{
		UploadStatusPending:    false,
		UploadStatusProcessing: false,
		UploadStatusDone:       true,
		UploadStatusFailed:     true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestParseUploadStatus(t *testing.T) {
	status, err := ParseUploadStatus("PROCESSING")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if status != UploadStatusProcessing {
		t.Fatalf("status = %s", status)
	}

	if _, err := ParseUploadStatus("LIMBO"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestParseRedactionMethod(t *testing.T) {
	method, err := ParseRedactionMethod("blur")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if method != RedactionMethodBlur {
		t.Fatalf("method = %s", method)
	}

	if _, err := ParseRedactionMethod("pixelate"); err == nil {
		t.Fatal("expected error for unknown method")
	}
}
