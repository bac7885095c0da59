package main_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func TestCLI_OfflineServer(t *testing.T) {
	tmp := t.TempDir()

	body, err := os.ReadFile(filepath.Join("testdata", "article.html"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	// Start local HTTP server serving the fixture
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	}))
	defer srv.Close()

	fixtures, err := filepath.Abs(filepath.Join("..", "..", "pkg", "catalog", "testdata"))
	if err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(tmp, "collodrill.db")
	bin := filepath.Join(tmp, "collodrill.bin")

	// Build the CLI binary (use full import path so it builds correctly regardless of the current working directory)
	build := exec.Command("go", "build", "-o", bin, "github.com/japaniel/collodrill/cmd/collodrill")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("failed to build CLI: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	runCLI := func(args ...string) string {
		t.Helper()
		full := append([]string{"--db", dbPath, "--config", filepath.Join(tmp, "config.yaml"), "--log-mode", "quiet"}, args...)
		cmd := exec.CommandContext(ctx, bin, full...)
		cmd.Dir = tmp
		cmd.Env = append(os.Environ(), "COLLODRILL_DB=", "COLLODRILL_LOG_MODE=")
		out, err := cmd.CombinedOutput()
		if ctx.Err() == context.DeadlineExceeded {
			t.Fatalf("cli timed out, output:\n%s", out)
		}
		if err != nil {
			t.Fatalf("cli %v failed: %v\noutput:\n%s", args, err, out)
		}
		return string(out)
	}

	runCLI("import",
		"--vocab", filepath.Join(fixtures, "vocabulary.json"),
		"--collocations", filepath.Join(fixtures, "collocations.json"))
	out := runCLI("studylist", "build", "cold", "--url", srv.URL)
	if !strings.Contains(out, "Saved study list cold") {
		t.Fatalf("unexpected CLI output; expected success message, got:\n%s", out)
	}

	dbConn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer dbConn.Close()

	var cnt int
	if err := dbConn.QueryRow("SELECT COUNT(*) FROM study_list_tokens WHERE list_name = 'cold'").Scan(&cnt); err != nil {
		t.Fatalf("db query failed: %v", err)
	}
	if cnt == 0 {
		t.Fatalf("expected study list tokens in DB, found 0")
	}
	var reading string
	if err := dbConn.QueryRow("SELECT reading FROM vocabulary WHERE token = '薬'").Scan(&reading); err != nil {
		t.Fatalf("db query failed: %v", err)
	}
	if reading != "くすり" {
		t.Fatalf("reading of 薬 = %q", reading)
	}
}
