package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/communityhq/opportunity-board/shared"
)

func TestContainsExpiryPhrase(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    bool
	}{
		{"live posting", "Senior Engineer at Acme. Apply now before the rush.", false},
		{"expired lowercase", "this posting has expired", true},
		{"expired mixed case", "This Posting Has EXPIRED", true},
		{"404 page", "Error 404: page could not be located", true},
		{"no longer available", "Sorry, this role is No Longer Available.", true},
		{"position filled", "The position has been filled, thanks for your interest", true},
		{"deadline passed", "The application deadline has passed.", true},
		{"empty content", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := containsExpiryPhrase(tc.content); got != tc.want {
				t.Errorf("containsExpiryPhrase(%q) = %v, want %v", tc.content, got, tc.want)
			}
		})
	}
}

func TestContainsExpiryPhraseCaseInvariance(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("detection is independent of casing", prop.ForAll(
		func(prefix, suffix string, phraseIndex int) bool {
			phrase := expiryPhrases[phraseIndex%len(expiryPhrases)]
			content := prefix + strings.ToUpper(phrase) + suffix
			return containsExpiryPhrase(content)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.IntRange(0, len(expiryPhrases)-1),
	))

	properties.TestingRun(t)
}

func TestExtractFirstLink(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"bare link", "Check this out <https://x.test/job>", "https://x.test/job"},
		{"labeled link", "Apply here: <https://x.test/job|Apply>", "https://x.test/job"},
		{"first of several", "<https://a.test/1> and <https://b.test/2>", "https://a.test/1"},
		{"http scheme", "<http://plain.test/role>", "http://plain.test/role"},
		{"no link", "hiring! DM me for details", ""},
		{"unbracketed url ignored", "see https://x.test/job for details", ""},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractFirstLink(tc.text); got != tc.want {
				t.Errorf("extractFirstLink(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestIsGatedDomain(t *testing.T) {
	cases := []struct {
		link string
		want bool
	}{
		{"https://linkedin.com/jobs/view/123", true},
		{"https://www.linkedin.com/jobs/view/123", true},
		{"https://docs.google.com/document/d/abc", true},
		{"https://drive.google.com/file/d/abc", true},
		{"https://docsend.com/view/abc", true},
		{"https://example.com/careers", false},
		{"https://notlinkedin.com/jobs", false},
		{"https://linkedin.com.evil.test/x", false},
	}

	for _, tc := range cases {
		if got := isGatedDomain(tc.link); got != tc.want {
			t.Errorf("isGatedDomain(%q) = %v, want %v", tc.link, got, tc.want)
		}
	}
}

func TestValidateSubmissionLink(t *testing.T) {
	valid := []string{
		"https://example.com/careers/42",
		"http://example.com",
		"  https://example.com/x  ",
	}
	for _, link := range valid {
		if err := validateSubmissionLink(link); err != nil {
			t.Errorf("validateSubmissionLink(%q) = %v, want nil", link, err)
		}
	}

	invalid := []string{
		"",
		"not a url",
		"/relative/path",
		"ftp://example.com/file",
		"example.com/careers",
	}
	for _, link := range invalid {
		err := validateSubmissionLink(link)
		if err == nil {
			t.Errorf("validateSubmissionLink(%q) = nil, want validation error", link)
			continue
		}
		if shared.CategoryOf(err) != shared.ErrorCategoryValidation {
			t.Errorf("validateSubmissionLink(%q) category = %s, want validation", link, shared.CategoryOf(err))
		}
	}
}

func TestTruncateContent(t *testing.T) {
	short := "short content"
	if got := truncateContent(short); got != short {
		t.Errorf("truncateContent changed content below the limit")
	}

	long := strings.Repeat("a", maxContentLength+500)
	got := truncateContent(long)
	if len(got) != maxContentLength {
		t.Errorf("truncateContent returned %d characters, want %d", len(got), maxContentLength)
	}

	multibyte := strings.Repeat("é", maxContentLength+500)
	got = truncateContent(multibyte)
	if utf8.RuneCountInString(got) != maxContentLength {
		t.Errorf("truncateContent returned %d characters, want %d", utf8.RuneCountInString(got), maxContentLength)
	}
	if !utf8.ValidString(got) {
		t.Error("truncateContent produced invalid UTF-8")
	}
}

func TestParseExtractionUsable(t *testing.T) {
	completion := `{
		"company": "Acme Corp",
		"title": "Backend Engineer Intern",
		"description": "Work on the platform team for the summer.",
		"expires_at": "2026-10-01",
		"tags": ["Engineering", "Internship"]
	}`

	extraction, usable, err := parseExtraction(completion)
	if err != nil {
		t.Fatalf("parseExtraction returned error: %v", err)
	}
	if !usable {
		t.Fatal("parseExtraction returned unusable for a complete extraction")
	}
	if extraction.Company == nil || *extraction.Company != "Acme Corp" {
		t.Errorf("company = %v, want Acme Corp", extraction.Company)
	}
	if extraction.Title != "Backend Engineer Intern" {
		t.Errorf("title = %q", extraction.Title)
	}
	if extraction.ExpiresAt == nil {
		t.Fatal("expires_at not parsed")
	}
	if got := extraction.ExpiresAt.Format("2006-01-02"); got != "2026-10-01" {
		t.Errorf("expires_at = %s, want 2026-10-01", got)
	}
	if len(extraction.Tags) != 2 {
		t.Errorf("tags = %v", extraction.Tags)
	}
}

func TestParseExtractionCodeFenced(t *testing.T) {
	completion := "```json\n{\"company\": null, \"title\": \"Designer\", \"description\": \"Design things.\", \"expires_at\": null, \"tags\": null}\n```"

	extraction, usable, err := parseExtraction(completion)
	if err != nil {
		t.Fatalf("parseExtraction returned error: %v", err)
	}
	if !usable {
		t.Fatal("fenced extraction should be usable")
	}
	if extraction.Title != "Designer" {
		t.Errorf("title = %q", extraction.Title)
	}
	if extraction.ExpiresAt != nil {
		t.Error("null expires_at should stay nil")
	}
}

func TestParseExtractionUnusable(t *testing.T) {
	cases := []string{
		`{"company": "Acme", "title": null, "description": "something", "expires_at": null, "tags": null}`,
		`{"company": "Acme", "title": "Engineer", "description": null, "expires_at": null, "tags": null}`,
		`{"company": null, "title": "  ", "description": "x", "expires_at": null, "tags": null}`,
		`{"company": null, "title": null, "description": null, "expires_at": null, "tags": null}`,
	}

	for _, completion := range cases {
		extraction, usable, err := parseExtraction(completion)
		if err != nil {
			t.Errorf("parseExtraction(%q) returned error: %v", completion, err)
			continue
		}
		if usable || extraction != nil {
			t.Errorf("parseExtraction(%q) should be unusable", completion)
		}
	}
}

func TestParseExtractionMalformed(t *testing.T) {
	cases := []string{
		"not json at all",
		`{"title": "Engineer"`,
		`[1, 2, 3`,
	}

	for _, completion := range cases {
		_, _, err := parseExtraction(completion)
		if err == nil {
			t.Errorf("parseExtraction(%q) = nil error, want malformed", completion)
			continue
		}
		if shared.CategoryOf(err) != shared.ErrorCategoryMalformed {
			t.Errorf("parseExtraction(%q) category = %s, want malformed_upstream", completion, shared.CategoryOf(err))
		}
	}
}

func TestParseExtractionBadDate(t *testing.T) {
	completion := `{"company": null, "title": "Engineer", "description": "x", "expires_at": "next Tuesday", "tags": null}`

	_, _, err := parseExtraction(completion)
	if err == nil {
		t.Fatal("expected malformed error for unparseable date")
	}
	if shared.CategoryOf(err) != shared.ErrorCategoryMalformed {
		t.Errorf("category = %s, want malformed_upstream", shared.CategoryOf(err))
	}
}

func TestParseExtractionClamps(t *testing.T) {
	longTitle := strings.Repeat("t", 150)
	longDescription := strings.Repeat("d", 600)
	completion := `{"company": null, "title": "` + longTitle + `", "description": "` + longDescription + `", "expires_at": null, "tags": ["a","b","c","d","e","f","g"]}`

	extraction, usable, err := parseExtraction(completion)
	if err != nil || !usable {
		t.Fatalf("parseExtraction failed: usable=%v err=%v", usable, err)
	}
	if len(extraction.Title) != 100 {
		t.Errorf("title length = %d, want 100", len(extraction.Title))
	}
	if len(extraction.Description) != 500 {
		t.Errorf("description length = %d, want 500", len(extraction.Description))
	}
	if len(extraction.Tags) != 5 {
		t.Errorf("tag count = %d, want 5", len(extraction.Tags))
	}
}

func TestParseExtractionClampsCountCharacters(t *testing.T) {
	// 40 three-byte euro signs is 120 bytes but only 40 characters; the
	// title must survive unclamped and stay valid UTF-8.
	shortMultibyte := strings.Repeat("€", 40)
	completion := `{"company": null, "title": "` + shortMultibyte + `", "description": "x", "expires_at": null, "tags": null}`

	extraction, usable, err := parseExtraction(completion)
	if err != nil || !usable {
		t.Fatalf("parseExtraction failed: usable=%v err=%v", usable, err)
	}
	if extraction.Title != shortMultibyte {
		t.Errorf("title = %q, want it unchanged", extraction.Title)
	}

	longMultibyte := strings.Repeat("é", 150)
	completion = `{"company": null, "title": "` + longMultibyte + `", "description": "` + longMultibyte + `", "expires_at": null, "tags": null}`

	extraction, usable, err = parseExtraction(completion)
	if err != nil || !usable {
		t.Fatalf("parseExtraction failed: usable=%v err=%v", usable, err)
	}
	if got := utf8.RuneCountInString(extraction.Title); got != 100 {
		t.Errorf("title length = %d characters, want 100", got)
	}
	if !utf8.ValidString(extraction.Title) {
		t.Error("clamped title is not valid UTF-8")
	}
	if got := utf8.RuneCountInString(extraction.Description); got != 150 {
		t.Errorf("description length = %d characters, want 150", got)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tc := range cases {
		if got := stripCodeFences(tc.in); got != tc.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
