// Package redact scrubs secrets out of shell commands before they are
// persisted. API keys, passwords, and tokens must never reach the database;
// commands that exist only to handle secrets are dropped entirely.
package redact

import "regexp"

type sensitivePattern struct {
	re          *regexp.Regexp
	replacement string
}

// sensitivePatterns is ordered: every pattern runs against the command in
// declaration order, so earlier rewrites feed later matches.
var sensitivePatterns = []sensitivePattern{
	// Key/token assignments by common naming patterns.
	{
		regexp.MustCompile(`(?i)(api[_-]?key|api[_-]?token|auth[_-]?token|access[_-]?token|secret[_-]?key|bearer)\s*[=:]\s*['"]?([a-zA-Z0-9_.+=/\-]{8,})['"]?`),
		`${1}=[REDACTED]`,
	},
	// Well-known environment variables.
	{
		regexp.MustCompile(`(?i)(ANTHROPIC_API_KEY|OPENAI_API_KEY|AWS_SECRET_ACCESS_KEY|AWS_ACCESS_KEY_ID|GITHUB_TOKEN|GH_TOKEN|NPM_TOKEN|DOCKER_PASSWORD|DATABASE_URL|DB_PASSWORD|REDIS_URL|STRIPE_SECRET_KEY|STRIPE_API_KEY|SENDGRID_API_KEY|TWILIO_AUTH_TOKEN|SLACK_TOKEN|DISCORD_TOKEN)\s*=\s*['"]?([^'"\s]+)['"]?`),
		`${1}=[REDACTED]`,
	},
	// Password flags.
	{
		regexp.MustCompile(`(?i)(-p|--password|--passwd|--pass)\s*[=\s]?\s*['"]?([^'"\s]+)['"]?`),
		`${1} [REDACTED]`,
	},
	// Database clients with an inline password.
	{
		regexp.MustCompile(`(?i)(mysql|psql|mongosh?)\s+.*-p\s*([^'"\s]+)`),
		`${1} ... -p[REDACTED]`,
	},
	// curl with an Authorization header.
	{
		regexp.MustCompile(`(?i)(-H|--header)\s*['"]?(Authorization:\s*(Bearer\s+)?)['"]?([a-zA-Z0-9_.+=/\-]+)['"]?`),
		`${1} "Authorization: [REDACTED]"`,
	},
	// curl basic auth.
	{
		regexp.MustCompile(`(?i)(curl\s+.*)-u\s*['"]?([^'"\s:]+:[^'"\s]+)['"]?`),
		`${1} -u [REDACTED]`,
	},
	{
		regexp.MustCompile(`(?i)sshpass\s+-p\s*['"]?([^'"\s]+)['"]?`),
		`sshpass -p [REDACTED]`,
	},
	{
		regexp.MustCompile(`(?i)(docker\s+login\s+.*)-p\s*['"]?([^'"\s]+)['"]?`),
		`${1} -p [REDACTED]`,
	},
	{
		regexp.MustCompile(`(?i)(npm|yarn)\s+.*--_authToken\s*[=\s]?\s*['"]?([^'"\s]+)['"]?`),
		`${1} ... --_authToken [REDACTED]`,
	},
	// Vendor-prefixed secrets (Stripe, GitHub, Slack, OpenAI-style keys).
	{
		regexp.MustCompile(`(?i)(sk-|pk_live_|pk_test_|sk_live_|sk_test_|ghp_|gho_|ghu_|ghs_|ghr_|xoxb-|xoxp-|xoxa-|xoxr-)([a-zA-Z0-9_\-]{20,})`),
		`[REDACTED_SECRET]`,
	},
	// AWS access key IDs.
	{
		regexp.MustCompile(`(?i)(AKIA|ABIA|ACCA|AGPA|AIDA|AIPA|ANPA|ANVA|APKA|AROA|ASCA|ASIA)[A-Z0-9]{16}`),
		`[REDACTED_AWS_KEY]`,
	},
	// JWTs: three base64url segments, first two starting with the {"typ"/{"alg" prefix.
	{
		regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]*\.eyJ[a-zA-Z0-9_\-]*\.[a-zA-Z0-9_\-]+`),
		`[REDACTED_JWT]`,
	},
	{
		regexp.MustCompile(`(?i)-----BEGIN\s+(RSA\s+)?PRIVATE\s+KEY-----`),
		`[REDACTED_PRIVATE_KEY]`,
	},
	{
		regexp.MustCompile(`(?i)heroku[_-]?api[_-]?key\s*[=:]\s*['"]?([a-f0-9\-]{36})['"]?`),
		`heroku_api_key=[REDACTED]`,
	},
}

// skipCommands match commands that should never be stored, redacted or not:
// password managers print secrets, and sudo -S reads them from stdin.
var skipCommands = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(pass|gopass|1password|op)\s+`),
	regexp.MustCompile(`(?i)^gpg\s+.*--passphrase`),
	regexp.MustCompile(`(?i)^(sudo\s+-S|su\s+-c)`),
}

// Result reports what redaction did to a command.
type Result struct {
	// Command is the stored form. Empty when Skipped is true.
	Command string
	// Skipped means the command must not be stored at all.
	Skipped bool
	// Redacted means at least one pattern rewrote the command.
	Redacted bool
	// Count is the number of patterns that rewrote the command.
	Count int
}

// Command scrubs a shell command. Commands matching a skip rule return
// Skipped=true; otherwise every sensitive pattern is applied in order.
func Command(command string) Result {
	for _, re := range skipCommands {
		if re.MatchString(command) {
			return Result{Skipped: true, Redacted: true, Count: 1}
		}
	}

	return applyPatterns(command)
}

// Text scrubs free-form text such as browser URLs and page titles. The
// skip rules are shell-specific and do not apply here; only the pattern
// rewrites run.
func Text(s string) Result {
	return applyPatterns(s)
}

func applyPatterns(s string) Result {
	out := s
	count := 0
	for _, sp := range sensitivePatterns {
		rewritten := sp.re.ReplaceAllString(out, sp.replacement)
		if rewritten != out {
			count++
			out = rewritten
		}
	}

	return Result{
		Command:  out,
		Redacted: count > 0,
		Count:    count,
	}
}
