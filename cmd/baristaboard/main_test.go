package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/betweencoffee/baristaboard/internal/app"
)

func sampleSummary() app.Summary {
	return app.Summary{
		BaseURL:   "http://shop.test",
		FetchedAt: time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC),
		Counts:    app.Counts{Waiting: 1, Ready: 1, Total: 2},
		Lists: []app.ListSummary{
			{Topic: "waiting_orders", Title: "Waiting", Orders: []app.OrderLine{
				{ID: 7, PickupCode: "A7", Name: "Mia", Items: 2, Total: "9.50", Expedited: true},
			}},
			{Topic: "preparing_orders", Title: "Preparing", Orders: []app.OrderLine{}},
			{Topic: "ready_orders", Title: "Ready", Orders: []app.OrderLine{
				{ID: 3, PickupCode: "B3", Items: 1, Total: "4.00"},
			}},
		},
	}
}

func TestWriteSummary_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSummary(&buf, sampleSummary(), "text", 0, nil); err != nil {
		t.Fatalf("writeSummary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"1 waiting, 0 preparing, 1 ready, 0 completed",
		"Waiting (1)",
		" ! #7     A7     Mia  2 items  $9.50",
		"Preparing (0)\n  none",
		"#3     B3     Guest  1 items  $4.00",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSummary_TextTruncatesToWidth(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSummary(&buf, sampleSummary(), "text", 22, nil); err != nil {
		t.Fatalf("writeSummary: %v", err)
	}
	if !strings.Contains(buf.String(), "#7     A7     Mia…") {
		t.Fatalf("long line should be cut to the terminal width:\n%s", buf.String())
	}
}

func TestWriteSummary_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSummary(&buf, sampleSummary(), "JSON", 0, nil); err != nil {
		t.Fatalf("writeSummary: %v", err)
	}
	var got app.Summary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, buf.String())
	}
	if got.Counts.Waiting != 1 || len(got.Lists) != 3 || got.Lists[0].Orders[0].PickupCode != "A7" {
		t.Fatalf("decoded summary = %+v", got)
	}
	if strings.Contains(buf.String(), "server_time") {
		t.Fatal("absent server time should be omitted")
	}
}

func TestWriteSummary_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSummary(&buf, sampleSummary(), "yaml", 0, nil); err != nil {
		t.Fatalf("writeSummary: %v", err)
	}
	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not yaml: %v", err)
	}
	if got["base_url"] != "http://shop.test" {
		t.Fatalf("base_url = %v", got["base_url"])
	}
}

func TestWriteSummary_UnknownFormat(t *testing.T) {
	err := writeSummary(&bytes.Buffer{}, sampleSummary(), "xml", 0, nil)
	if err == nil || !strings.Contains(err.Error(), "xml") {
		t.Fatalf("err = %v, want unknown format error", err)
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "baristaboard dev") {
		t.Fatalf("version output = %q", buf.String())
	}
}

func TestTrackCommand_RequiresOrderID(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"track"})
	if err := root.Execute(); err == nil {
		t.Fatal("track without an order id should fail")
	}
}

func TestLogPrinter_FiltersByComponent(t *testing.T) {
	var buf bytes.Buffer
	p := newLogPrinter(&buf, nil, "realtime:")
	p.print("baristaboard 2026/10/16 09:30:00 realtime: connected to wss://shop/ws/queue/")
	p.print("baristaboard 2026/10/16 09:30:01 app: refresh requested")
	p.print("panic: something odd")

	out := buf.String()
	if !strings.Contains(out, "realtime: connected to wss://shop/ws/queue/") {
		t.Fatalf("output missing realtime line: %q", out)
	}
	if strings.Contains(out, "refresh requested") || strings.Contains(out, "panic") {
		t.Fatalf("filter let other lines through: %q", out)
	}
}

func TestLogPrinter_KeepsUnparsedLines(t *testing.T) {
	var buf bytes.Buffer
	p := newLogPrinter(&buf, nil, "")
	p.print("goroutine 1 [running]:")
	if got := buf.String(); got != "goroutine 1 [running]:\n" {
		t.Fatalf("output = %q", got)
	}
}
