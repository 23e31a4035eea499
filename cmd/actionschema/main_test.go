package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteSchema(t *testing.T) {
	out := filepath.Join(t.TempDir(), "schemas", "action.schema.json")
	if err := writeSchema(out, buildSchema()); err != nil {
		t.Fatalf("writeSchema: %v", err)
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind")
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if doc["title"] != "oxy-anim Action" {
		t.Errorf("title = %v", doc["title"])
	}
	for _, field := range []string{"looping", "source", "end_position", "pose_cache_limit"} {
		if !strings.Contains(string(data), `"`+field+`"`) {
			t.Errorf("schema does not describe %q", field)
		}
	}
}
