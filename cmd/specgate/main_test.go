package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/davidahmann/specgate/pkg/types"
)

const goodDoc = "# [Proj] API 설계서\n\n" +
	"## 2. 설계 규칙\n" +
	"- **RULE-API-001** (MUST): 모든 요청은 토큰으로 인증되어야 한다\n" +
	"- **RULE-API-002** (SHOULD): 응답 본문은 JSON 형식을 사용해야 한다\n" +
	"- **RULE-API-003** (MUST NOT): 비밀번호를 로그에 남겨서는 안 된다\n" +
	"- **RULE-API-004** (MUST): 모든 오류는 표준 오류 코드로 반환한다\n" +
	"- **RULE-API-005** (SHOULD): 목록 응답은 페이지네이션을 지원한다\n\n" +
	"## 3. 기술 스펙\n```go\nfunc Login() error { return nil }\n```\n\n" +
	"## 4. 변경 이력\n- v1.0 최초 작성\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func fixNow(t *testing.T) {
	t.Helper()
	old := now
	now = func() time.Time { return time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = old })
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"specgate"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected code 2, got %d", code)
	}
	if !strings.Contains(stderr.String(), "specgate CLI") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"specgate", "unknown"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected code 2, got %d", code)
	}
}

func TestLintHighDocument(t *testing.T) {
	path := writeFile(t, "doc.md", goodDoc)

	var stdout, stderr bytes.Buffer
	code := run([]string{"specgate", "lint", path}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected code 0, got %d: %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "level=high") || !strings.Contains(out, "action=auto_approve") {
		t.Fatalf("unexpected stdout: %q", out)
	}
	if strings.Contains(out, "PENALTY") {
		t.Fatalf("no violation table expected: %q", out)
	}
}

func TestLintLowDocumentFails(t *testing.T) {
	path := writeFile(t, "memo.md", "회의 메모\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"specgate", "lint", path, "--no-color"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected code 1, got %d", code)
	}
	out := stdout.String()
	for _, want := range []string{"level=low", "PENALTY", types.ViolationDesignRulesMissing, "설계 규칙"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestLintJSONWithTitleAndDepth(t *testing.T) {
	path := writeFile(t, "doc.md", "## 2. 설계 규칙\n- 내용\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"specgate", "lint", "--json", "--depth", "basic", "--title", "[Proj] API 설계서", path}, &stdout, &stderr)
	if code == 2 {
		t.Fatalf("unexpected usage error: %s", stderr.String())
	}
	var result types.QualityResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Metadata.CheckDepth != types.DepthBasic || result.HasViolation(types.ViolationTitleFormatMismatch) {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestLintHTML(t *testing.T) {
	path := writeFile(t, "page.html", `<html><head><title>[Proj] API 설계서</title></head><body><h2>2. 설계 규칙</h2></body></html>`)

	var stdout, stderr bytes.Buffer
	run([]string{"specgate", "lint", "--html", "--json", "--depth=basic", path}, &stdout, &stderr)
	var result types.QualityResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("decode %q: %v", stdout.String(), err)
	}
	if result.HasViolation(types.ViolationTitleFormatMismatch) || result.HasViolation(types.ViolationDesignRulesMissing) {
		t.Fatalf("converted html should pass basic checks: %+v", result.Violations)
	}
}

func TestLintWritesReport(t *testing.T) {
	fixNow(t)
	path := writeFile(t, "doc.md", goodDoc)
	outDir := filepath.Join(t.TempDir(), "reports")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"specgate", "lint", "--out", outDir, path}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected code 0, got %d: %s", code, stderr.String())
	}

	entries, err := os.ReadDir(outDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one report, got %v %v", entries, err)
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "quality_report_") || !strings.Contains(name, "_high_20250801_090000_") || !strings.HasSuffix(name, ".json") {
		t.Fatalf("unexpected report name %s", name)
	}
	if !strings.Contains(stderr.String(), "wrote ") {
		t.Fatalf("expected write notice, got %q", stderr.String())
	}
}

func TestLintErrors(t *testing.T) {
	path := writeFile(t, "doc.md", goodDoc)
	badRules := writeFile(t, "rules.yaml", "scoring:\n  base_score: 0\n")

	cases := []struct {
		args []string
		code int
	}{
		{[]string{"specgate", "lint"}, 2},
		{[]string{"specgate", "lint", "--depth", "deep", path}, 2},
		{[]string{"specgate", "lint", filepath.Join(t.TempDir(), "missing.md")}, 1},
		{[]string{"specgate", "lint", "--rules", badRules, path}, 1},
	}
	for _, c := range cases {
		var stdout, stderr bytes.Buffer
		if code := run(c.args, &stdout, &stderr); code != c.code {
			t.Fatalf("%v: expected code %d, got %d", c.args, c.code, code)
		}
	}
}

func TestRulesLint(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"specgate", "rules", "lint", "../../internal/rules/speclint.yaml"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected code 0, got %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "ok rules_id=speclint-default rules_hash=sha256:") {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
}

func TestRulesLintErrors(t *testing.T) {
	bad := writeFile(t, "rules.yaml", "title:\n  patterns: ['(']\n")
	cases := []struct {
		args []string
		code int
	}{
		{[]string{"specgate", "rules"}, 2},
		{[]string{"specgate", "rules", "lint"}, 2},
		{[]string{"specgate", "rules", "unknown"}, 2},
		{[]string{"specgate", "rules", "lint", bad}, 1},
	}
	for _, c := range cases {
		var stdout, stderr bytes.Buffer
		if code := run(c.args, &stdout, &stderr); code != c.code {
			t.Fatalf("%v: expected code %d, got %d", c.args, c.code, code)
		}
	}
}

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/v1/workflows/wf_1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"workflow not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"wf_1","status":"hitl_review_pending","score":72,"level":"medium","ticket_url":"https://github.test/i/7"}`))
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	code := run([]string{"specgate", "status", "wf_1", "--addr", server.URL, "--token", "test-token"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected code 0, got %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "status=hitl_review_pending") || !strings.Contains(stdout.String(), "ticket=https://github.test/i/7") {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}

	stdout.Reset()
	stderr.Reset()
	if code := run([]string{"specgate", "status", "--addr", server.URL, "--token", "test-token", "missing"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "status failed") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}

	if code := run([]string{"specgate", "status"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected code 2, got %d", code)
	}
}

func TestStatusJSONOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"wf_1","status":"approved"}`))
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	if code := run([]string{"specgate", "status", "--json", "--addr", server.URL, "wf_1"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected code 0, got %d", code)
	}
	if !strings.Contains(stdout.String(), `"id":"wf_1"`) {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
}

func TestStatusInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{invalid"))
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	if code := run([]string{"specgate", "status", "--addr", server.URL, "wf_1"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "invalid response") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_workflows":3,"counts_by_status":{"auto_approve":2,"error":1},"recent_records":[{"id":"wf_3","status":"error","score":10}]}`))
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	if code := run([]string{"specgate", "summary", "--addr", server.URL}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected code 0, got %d: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"total_workflows=3", "auto_approve", "wf_3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Index(out, "auto_approve") > strings.Index(out, "error") {
		t.Fatalf("expected statuses sorted: %q", out)
	}
}

func TestSummaryFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	if code := run([]string{"specgate", "summary", "--addr", server.URL}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "summary failed") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestReorder(t *testing.T) {
	got := strings.Join(reorder([]string{"doc.md", "--json", "--depth", "basic", "--title=x", "--", "-odd"}), " ")
	if got != "--json --depth basic --title=x -- doc.md -odd" {
		t.Fatalf("unexpected order %q", got)
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("SPECGATE_TEST_ENV", "value")
	if got := envOrDefault("SPECGATE_TEST_ENV", "fallback"); got != "value" {
		t.Fatalf("expected env value, got %s", got)
	}
	if got := envOrDefault("SPECGATE_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestMainExitCode(t *testing.T) {
	oldExit := exitFn
	oldArgs := os.Args
	defer func() {
		exitFn = oldExit
		os.Args = oldArgs
	}()

	var code int
	exitFn = func(c int) { code = c }
	os.Args = []string{"specgate"}

	main()

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}
