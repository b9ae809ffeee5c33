package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = "Transaction Completed Date Time,Event Name,Channel Name,Price Band Name,Performance Date Time,Sold Tickets,Comp Tickets,Sold Gross Value\n" +
	"20/12/2024 10:15:00,Hamilton,Web,Stalls A,25/12/2024 19:30,2,1,150.00\n"

func TestIngestCommand_MemoryStore(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "")
	t.Setenv("SHOW_CATALOG_PATH", "")

	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"ingest", "--quiet", path})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"state": "Done"`) || !strings.Contains(out.String(), `"committed": 1`) {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestSummaryFilter_RejectsUnknownType(t *testing.T) {
	if _, err := (summaryFilter{ptype: "Night"}).toFilter(); err == nil {
		t.Fatal("expected an error for an unknown performance type")
	}
	f, err := (summaryFilter{date: "2024-12-20", ptype: "Evening"}).toFilter()
	if err != nil || len(f) != 2 {
		t.Fatalf("filter = %v, err = %v", f, err)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"reset"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
}
