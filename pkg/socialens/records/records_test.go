package records

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/socialens/pkg/socialens/internalerr"
)

func TestIDNormalization(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{`"abc"`, "abc"},
		{`" 42 "`, "42"},
		{`42`, "42"},
		{`7321456987412365478`, "7321456987412365478"},
		{`42.0`, "42"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var id ID
		if err := json.Unmarshal([]byte(tt.in), &id); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if id != tt.want {
			t.Errorf("%s -> %q, want %q", tt.in, id, tt.want)
		}
	}

	var id ID
	if err := json.Unmarshal([]byte(`true`), &id); err == nil {
		t.Error("boolean id should fail")
	}
}

func TestNumberCoercion(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{`12`, 12, false},
		{`"12"`, 12, false},
		{`" 7 "`, 7, false},
		{`0`, 0, false},
		{`3.0`, 3, false},
		{`3.5`, 0, true},
		{`"abc"`, 0, true},
		{`""`, 0, true},
		{`true`, 0, true},
		{`9223372036854775807`, 0, true},
		{`"9223372036854775807"`, 0, true},
		{`1e19`, 0, true},
		{`-9223372036854775808`, -9223372036854775808, false},
		{`9007199254740992`, 9007199254740992, false},
	}
	for _, tt := range tests {
		got, err := NumberOf(tt.raw).Int64()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("%s = %d, want %d", tt.raw, got, tt.want)
		}
	}

	var missing Number
	if _, err := missing.Float64(); err == nil {
		t.Error("missing number must not coerce")
	}
}

func TestNumberKeepsRawToken(t *testing.T) {
	var c Comment
	if err := json.Unmarshal([]byte(`{"comment_id":1,"sub_comment_count":"n/a","create_time":null}`), &c); err != nil {
		t.Fatal(err)
	}
	if !c.SubCommentCount.IsSet() || c.SubCommentCount.Raw() != `"n/a"` {
		t.Errorf("raw token lost: %+v", c.SubCommentCount)
	}
	if c.CreateTime.IsSet() {
		t.Error("null must read as unset")
	}
	out, err := json.Marshal(c.SubCommentCount)
	if err != nil || string(out) != `"n/a"` {
		t.Errorf("marshal = %s, %v", out, err)
	}
}

func TestParseCommentsArrayAndJSONL(t *testing.T) {
	array := []byte(`[
		{"comment_id": 1, "content": "好听", "create_time": 1733616000, "user_id": "u1", "sub_comment_count": 0, "last_modify_ts": 1733616000000},
		{"comment_id": "2", "content": 5, "create_time": 1733616000, "user_id": "u2", "sub_comment_count": 1, "last_modify_ts": 1733616000000},
		{"comment_id": 3, "content": "唱得好", "create_time": 1733702400, "user_id": "u3", "sub_comment_count": 2, "last_modify_ts": 1733616000000}
	]`)
	loaded, err := ParseComments(array, "comments.json")
	if err != nil {
		t.Fatalf("ParseComments: %v", err)
	}
	comments := loaded.Items
	if len(comments) != 2 || loaded.Skipped != 1 {
		t.Fatalf("got %d comments, %d skipped; want 2 and 1 (malformed content skipped)", len(comments), loaded.Skipped)
	}
	if comments[0].CommentID != "1" || comments[1].CommentID != "3" {
		t.Errorf("ids = %s, %s", comments[0].CommentID, comments[1].CommentID)
	}

	jsonl := []byte(`{"comment_id": 9, "content": "x", "create_time": 1, "user_id": 1, "sub_comment_count": 0, "last_modify_ts": 1}
not json
{"comment_id": 10, "content": "y", "create_time": 1, "user_id": 2, "sub_comment_count": 0, "last_modify_ts": 1}`)
	loaded, err = ParseComments(jsonl, "comments.jsonl")
	if err != nil {
		t.Fatalf("ParseComments jsonl: %v", err)
	}
	if len(loaded.Items) != 2 || loaded.Skipped != 1 {
		t.Errorf("got %d comments, %d skipped; want 2 and 1", len(loaded.Items), loaded.Skipped)
	}
}

func TestParseCountsSkippedEntries(t *testing.T) {
	data := []byte(`[
		{"comment_id": 1, "content": "好听", "create_time": 1733616000, "user_id": "u1", "sub_comment_count": 0, "last_modify_ts": 1733616000000},
		{"comment_id": 2, "content": 12345, "create_time": 1733616000, "user_id": "u2", "sub_comment_count": 0, "last_modify_ts": 1733616000000},
		{"comment_id": true, "content": "x", "create_time": 1733616000, "user_id": "u3", "sub_comment_count": 0, "last_modify_ts": 1733616000000},
		{"comment_id": 4, "content": "y", "create_time": 1733616000, "user_id": {"id": 1}, "sub_comment_count": 0, "last_modify_ts": 1733616000000},
		"not an object",
		42
	]`)
	loaded, err := ParseComments(data, "comments.json")
	if err != nil {
		t.Fatalf("ParseComments: %v", err)
	}
	if len(loaded.Items) != 1 || loaded.Skipped != 5 {
		t.Errorf("loaded=%d skipped=%d, want 1 and 5", len(loaded.Items), loaded.Skipped)
	}
	if len(loaded.Items)+loaded.Skipped != 6 {
		t.Error("every entry must be loaded or counted as skipped")
	}
}

func TestParseFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty file", "   ", internalerr.ErrEmptyInput},
		{"empty array", "[]", internalerr.ErrEmptyInput},
		{"broken array", "[{", internalerr.ErrInvalidInput},
		{"field missing everywhere", `[{"video_id": 1, "title": "t"}]`, internalerr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVideos([]byte(tt.data), "videos.json")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFieldMissingInSomeRecordsIsNotFatal(t *testing.T) {
	data := `[
		{"user_id": 1, "nickname": "a", "total_fans": 10, "total_liked": 5, "last_modify_ts": 1},
		{"user_id": 2, "nickname": "b", "total_liked": 5, "last_modify_ts": 1}
	]`
	creators, err := ParseCreators([]byte(data), "creators.json")
	if err != nil {
		t.Fatalf("ParseCreators: %v", err)
	}
	if creators.Skipped != 0 {
		t.Errorf("skipped = %d, want 0", creators.Skipped)
	}
	if creators.Items[1].TotalFans.IsSet() {
		t.Error("absent field should be unset")
	}
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.json")
	if err := os.WriteFile(path, []byte(`[{"comment_id": 1, "video_id": "BV1"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadMappings(path)
	if err != nil {
		t.Fatalf("LoadMappings: %v", err)
	}
	if len(m.Items) != 1 || m.Items[0].CommentID != "1" || m.Items[0].VideoID != "BV1" {
		t.Errorf("got %+v", m)
	}

	if _, err := LoadMappings(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestClockDate(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	tests := []struct {
		name    string
		clock   Clock
		raw     string
		want    string
		wantErr bool
	}{
		{"seconds utc", Clock{Unit: Seconds}, `1733616000`, "2024-12-08", false},
		{"millis utc", Clock{Unit: Milliseconds}, `1733616000000`, "2024-12-08", false},
		{"seconds shanghai", Clock{Unit: Seconds, Location: shanghai}, `1733587200`, "2024-12-08", false},
		{"seconds utc before midnight", Clock{Unit: Seconds}, `1733587200`, "2024-12-07", false},
		{"quoted seconds", Clock{Unit: Seconds}, `"1733616000"`, "2024-12-08", false},
		{"already a date", Clock{Unit: Seconds}, `"2024-12-08"`, "2024-12-08", false},
		{"garbage", Clock{Unit: Seconds}, `"yesterday"`, "", true},
		{"negative", Clock{Unit: Seconds}, `-5`, "", true},
		{"no unit", Clock{}, `1733616000`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.clock.Date(NumberOf(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{"s": Seconds, "Seconds": Seconds, "ms": Milliseconds, "milliseconds": Milliseconds} {
		got, err := ParseUnit(in)
		if err != nil || got != want {
			t.Errorf("ParseUnit(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseUnit("auto"); err == nil {
		t.Error("auto must be rejected")
	}
}
