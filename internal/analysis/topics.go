package analysis

import (
	"regexp"
	"strings"

	"github.com/kevinreber/siphon/internal/event"
)

// TopicGeneral is the fallback label for events with no recognizable subject.
// General events inherit the topic of the cluster they land in.
const TopicGeneral = "general"

// TopicResearch is the fallback label for browser events.
const TopicResearch = "research"

// Topic tables are ordered: the first matching entry wins, so declaration
// order is part of the observable contract (it decides which cluster an
// ambiguous event joins). They are built once at init and never mutated.

type topicPattern struct {
	topic string
	re    *regexp.Regexp
}

type topicKeywords struct {
	topic    string
	keywords []string
}

type domainTopic struct {
	domain string
	topic  string
}

type extensionTopic struct {
	ext   string
	topic string
}

// Multi-word shell patterns run before keyword sets: "git push" should win
// over a generic "push" keyword elsewhere, and "go test" is testing, not go.
var shellPatterns = []topicPattern{
	{"testing", regexp.MustCompile(`\b(go\s+test|npm\s+(run\s+)?test|pnpm\s+test|yarn\s+test|pytest|cargo\s+test|jest|vitest|rspec)\b`)},
	{"kubernetes", regexp.MustCompile(`\bkubectl\s+(get|describe|apply|delete|logs|exec|rollout|port-forward|top)\b`)},
	{"docker", regexp.MustCompile(`\bdocker\s+(compose|build|run|ps|logs|exec|push|pull|images)\b`)},
	{"git", regexp.MustCompile(`\bgit\s+(status|add|commit|push|pull|rebase|merge|checkout|switch|stash|log|diff|cherry-pick|bisect)\b`)},
	{"infrastructure", regexp.MustCompile(`\b(terraform\s+(init|plan|apply|destroy)|pulumi\s+(up|preview)|ansible-playbook)\b`)},
	{"database", regexp.MustCompile(`\b(psql|mysql|sqlite3|mongosh|redis-cli)\b`)},
	{"aws", regexp.MustCompile(`\baws\s+(s3|ec2|lambda|iam|ecs|eks|logs|cloudformation)\b`)},
	{"build", regexp.MustCompile(`\b(go\s+build|npm\s+run\s+build|cargo\s+build|make\s+\S|mvn\s+(package|install)|gradle\s+build)\b`)},
}

// Keyword sets run after patterns, still in declaration order. Rust sits
// above go because "cargo run" contains the substring "go ".
var shellKeywords = []topicKeywords{
	{"kubernetes", []string{"kubectl", "k9s", "helm", "minikube", "kustomize"}},
	{"docker", []string{"docker", "podman", "docker-compose"}},
	{"git", []string{"git ", "gh ", "lazygit", "tig"}},
	{"rust", []string{"cargo", "rustc", "rustup"}},
	{"go", []string{"go ", "gofmt", "golangci-lint", "gopls"}},
	{"python", []string{"python", "pip ", "pip3", "poetry", "pytest", "uvicorn"}},
	{"javascript", []string{"npm", "npx", "yarn", "pnpm", "node ", "deno"}},
	{"database", []string{"migrate", "prisma", "alembic"}},
	{"infrastructure", []string{"terraform", "ansible", "packer", "vault "}},
	{"networking", []string{"curl", "wget", "ping ", "dig ", "nslookup", "traceroute"}},
	{"ssh", []string{"ssh ", "scp ", "rsync"}},
}

// Browser domains are an exact lookup, kept as an ordered list for the same
// first-match discipline as the other tables.
var browserDomains = []domainTopic{
	{"github.com", "git"},
	{"gitlab.com", "git"},
	{"stackoverflow.com", "debugging"},
	{"pkg.go.dev", "go"},
	{"go.dev", "go"},
	{"doc.rust-lang.org", "rust"},
	{"docs.python.org", "python"},
	{"developer.mozilla.org", "javascript"},
	{"kubernetes.io", "kubernetes"},
	{"docs.docker.com", "docker"},
	{"hub.docker.com", "docker"},
	{"docs.aws.amazon.com", "aws"},
	{"registry.terraform.io", "infrastructure"},
	{"news.ycombinator.com", "reading"},
	{"lobste.rs", "reading"},
}

var browserTitlePatterns = []topicPattern{
	{"debugging", regexp.MustCompile(`(stack\s+trace|not\s+working|error\s+message|exception\s+in)`)},
	{"kubernetes", regexp.MustCompile(`(kubernetes|kubectl|pod\s+(crash|pending|evicted))`)},
	{"docker", regexp.MustCompile(`(docker|container\s+(image|registry|build))`)},
}

var browserTitleKeywords = []topicKeywords{
	{"debugging", []string{"error", "bug", "fix", "issue", "failed"}},
	{"go", []string{"golang", " go "}},
	{"rust", []string{"rust"}},
	{"python", []string{"python", "django", "flask"}},
	{"javascript", []string{"javascript", "typescript", "react", "node.js"}},
	{"database", []string{"sql", "postgres", "sqlite", "mongodb"}},
	{"git", []string{"git", "pull request", "merge conflict"}},
}

var editorExtensions = []extensionTopic{
	{".go", "go"},
	{".rs", "rust"},
	{".py", "python"},
	{".ts", "javascript"},
	{".tsx", "javascript"},
	{".js", "javascript"},
	{".jsx", "javascript"},
	{".sql", "database"},
	{".tf", "infrastructure"},
	{".yaml", "configuration"},
	{".yml", "configuration"},
	{".toml", "configuration"},
	{".json", "configuration"},
	{".md", "writing"},
	{".sh", "shell"},
	{".dockerfile", "docker"},
}

// DetectTopic classifies one event into a lowercase topic label. Events
// whose source carries no topical information (git operations, filesystem
// churn) resolve to "general" and inherit their surroundings.
func DetectTopic(e event.Event) string {
	switch e.Source {
	case event.SourceShell:
		if p, ok := e.Shell(); ok {
			return shellTopic(p.Command)
		}
	case event.SourceBrowser:
		if p, ok := e.Browser(); ok {
			return browserTopic(p)
		}
	case event.SourceEditor:
		if p, ok := e.Editor(); ok {
			return editorTopic(p.FilePath)
		}
	}
	return TopicGeneral
}

func shellTopic(command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if cmd == "" {
		return TopicGeneral
	}

	for _, tp := range shellPatterns {
		if tp.re.MatchString(cmd) {
			return tp.topic
		}
	}
	for _, tk := range shellKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(cmd, kw) {
				return tk.topic
			}
		}
	}

	// Multi-word commands fall back to their leading token; bare one-word
	// commands (ls, cd, pwd) carry no subject and stay general.
	fields := strings.Fields(cmd)
	if len(fields) > 1 {
		return fields[0]
	}
	return TopicGeneral
}

func browserTopic(p event.BrowserPayload) string {
	domain := strings.ToLower(strings.TrimSpace(p.Domain))
	for _, dt := range browserDomains {
		if dt.domain == domain {
			return dt.topic
		}
	}

	if category := strings.ToLower(strings.TrimSpace(p.Category)); category != "" {
		return category
	}

	title := strings.ToLower(p.Title)
	for _, tp := range browserTitlePatterns {
		if tp.re.MatchString(title) {
			return tp.topic
		}
	}
	for _, tk := range browserTitleKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(title, kw) {
				return tk.topic
			}
		}
	}
	return TopicResearch
}

func editorTopic(filePath string) string {
	path := strings.ToLower(filePath)
	for _, et := range editorExtensions {
		if strings.HasSuffix(path, et.ext) {
			return et.topic
		}
	}
	return TopicGeneral
}
