package http

import (
	"strings"
	"testing"
	"time"
)

func TestLinkSignerRoundTrip(t *testing.T) {
	signer := NewLinkSigner("https://reports.example.com", "secret")

	url := signer.SummaryURL("abc-123")
	if !strings.HasPrefix(url, "https://reports.example.com/resumo?id=abc-123&token=") {
		t.Fatalf("url = %q", url)
	}

	token := url[strings.Index(url, "token=")+len("token="):]
	if err := signer.Verify(token, "abc-123"); err != nil {
		t.Errorf("Verify() = %v", err)
	}
}

func TestLinkSignerRejectsOtherReport(t *testing.T) {
	signer := NewLinkSigner("https://reports.example.com", "secret")
	url := signer.SummaryURL("report-a")
	token := url[strings.Index(url, "token=")+len("token="):]

	if err := signer.Verify(token, "report-b"); err == nil {
		t.Error("token for report-a verified against report-b")
	}
}

func TestLinkSignerRejectsWrongSecret(t *testing.T) {
	signer := NewLinkSigner("https://reports.example.com", "secret")
	other := NewLinkSigner("https://reports.example.com", "other-secret")

	url := signer.SummaryURL("abc")
	token := url[strings.Index(url, "token=")+len("token="):]

	if err := other.Verify(token, "abc"); err == nil {
		t.Error("token verified with the wrong secret")
	}
}

func TestLinkSignerExpiry(t *testing.T) {
	signer := NewLinkSigner("https://reports.example.com", "secret")

	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }
	url := signer.SummaryURL("abc")
	token := url[strings.Index(url, "token=")+len("token="):]

	signer.now = func() time.Time { return issued.Add(29 * 24 * time.Hour) }
	if err := signer.Verify(token, "abc"); err != nil {
		t.Errorf("token expired early: %v", err)
	}

	signer.now = func() time.Time { return issued.Add(31 * 24 * time.Hour) }
	if err := signer.Verify(token, "abc"); err == nil {
		t.Error("expired token verified")
	}
}

func TestLinkSignerWeeklyPath(t *testing.T) {
	signer := NewLinkSigner("https://reports.example.com", "secret")
	url := signer.WeeklyReportURL("w1")
	if !strings.Contains(url, "/relatorio-semanal?id=w1&token=") {
		t.Errorf("url = %q", url)
	}
}
