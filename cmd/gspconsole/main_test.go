package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("gspconsole %v: %v", args, err)
	}
	return out.String()
}

func TestInitChainApplyBlockAndDumpState(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "console-test.sqlite")

	runCLI(t, "--db", dbPath, "init-chain")

	blockPath := filepath.Join(dir, "block1.json")
	regEnv, err := json.Marshal(map[string]any{
		"owner": "alice",
		"move": map[string]any{
			"g": map[string]any{
				"chainrealm": map[string]json.RawMessage{
					"register_account": mustMarshal(t, map[string]string{"faction": "red"}),
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	block, err := json.Marshal(map[string]any{
		"block": map[string]any{"height": 1, "timestamp": 1000},
		"admin": []json.RawMessage{},
		"moves": []json.RawMessage{regEnv},
	})
	if err != nil {
		t.Fatalf("marshal block: %v", err)
	}
	if err := os.WriteFile(blockPath, block, 0o644); err != nil {
		t.Fatalf("write block file: %v", err)
	}

	runCLI(t, "--db", dbPath, "apply-block", "--file", blockPath)

	dumpPath := filepath.Join(dir, "dump.json")
	runCLI(t, "--db", dbPath, "dump-state", "--out", dumpPath)

	dump, err := os.ReadFile(dumpPath)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	var decoded struct {
		Accounts []json.RawMessage `json:"accounts"`
	}
	if err := json.Unmarshal(dump, &decoded); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if len(decoded.Accounts) != 1 {
		t.Fatalf("expected 1 account in dump, got %d", len(decoded.Accounts))
	}
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}
