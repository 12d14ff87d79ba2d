package solution

// Category groups templates by the kind of system they harden
type Category string

const (
	CategoryWeb      Category = "web"
	CategoryDatabase Category = "database"
	CategorySystem   Category = "system"
	CategoryNetwork  Category = "network"
)

// Difficulty of a remediation step
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyAdvanced Difficulty = "advanced"
)

// StepCategory classifies what a step does
type StepCategory string

const (
	StepImmediate     StepCategory = "immediate"
	StepConfiguration StepCategory = "configuration"
	StepPatch         StepCategory = "patch"
	StepMonitoring    StepCategory = "monitoring"
)

// Step is one remediation action
type Step struct {
	ID          int          `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Commands    []string     `json:"commands,omitempty"`
	Difficulty  Difficulty   `json:"difficulty"`
	Category    StepCategory `json:"category"`
}

// Template is a step-by-step remediation guide
type Template struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      Category `json:"category"`
	Severity      string   `json:"severity"`
	EstimatedTime string   `json:"estimatedTime"`
	Prerequisites []string `json:"prerequisites"`
	Steps         []Step   `json:"steps"`
}

var templates = []Template{
	{
		ID:            "web-xss-mitigation",
		Name:          "Cross-Site Scripting (XSS) Mitigation",
		Description:   "Complete solution for preventing XSS attacks in web applications",
		Category:      CategoryWeb,
		Severity:      "high",
		EstimatedTime: "2-4 hours",
		Prerequisites: []string{"Web server admin access", "Basic understanding of HTTP headers"},
		Steps: []Step{
			{
				ID:          1,
				Title:       "Implement Content Security Policy",
				Description: "Configure CSP headers to prevent script injection",
				Commands: []string{
					"# Add to web server config",
					"Content-Security-Policy: default-src 'self'; script-src 'self' 'unsafe-inline'",
				},
				Difficulty: DifficultyMedium,
				Category:   StepConfiguration,
			},
			{
				ID:          2,
				Title:       "Enable XSS Protection Headers",
				Description: "Add security headers to prevent XSS attacks",
				Commands: []string{
					"X-XSS-Protection: 1; mode=block",
					"X-Content-Type-Options: nosniff",
					"X-Frame-Options: DENY",
				},
				Difficulty: DifficultyEasy,
				Category:   StepConfiguration,
			},
			{
				ID:          3,
				Title:       "Input Validation and Sanitization",
				Description: "Implement proper input validation on all user inputs",
				Difficulty:  DifficultyAdvanced,
				Category:    StepPatch,
			},
		},
	},
	{
		ID:            "sql-injection-prevention",
		Name:          "SQL Injection Prevention",
		Description:   "Comprehensive protection against SQL injection attacks",
		Category:      CategoryDatabase,
		Severity:      "critical",
		EstimatedTime: "3-6 hours",
		Prerequisites: []string{"Database admin access", "Application code access"},
		Steps: []Step{
			{
				ID:          1,
				Title:       "Use Parameterized Queries",
				Description: "Replace dynamic SQL with parameterized queries",
				Difficulty:  DifficultyMedium,
				Category:    StepPatch,
			},
			{
				ID:          2,
				Title:       "Implement Database User Permissions",
				Description: "Restrict database user permissions to minimum required",
				Commands: []string{
					"REVOKE ALL ON database.* FROM 'app_user'@'%';",
					"GRANT SELECT, INSERT, UPDATE ON specific_tables TO 'app_user'@'%';",
				},
				Difficulty: DifficultyMedium,
				Category:   StepConfiguration,
			},
			{
				ID:          3,
				Title:       "Enable Database Auditing",
				Description: "Set up logging to monitor database access",
				Difficulty:  DifficultyAdvanced,
				Category:    StepMonitoring,
			},
		},
	},
	{
		ID:            "system-privilege-escalation",
		Name:          "Privilege Escalation Prevention",
		Description:   "Secure system against privilege escalation attacks",
		Category:      CategorySystem,
		Severity:      "high",
		EstimatedTime: "1-3 hours",
		Prerequisites: []string{"Root/admin access", "System administration knowledge"},
		Steps: []Step{
			{
				ID:          1,
				Title:       "Update System Packages",
				Description: "Install latest security patches",
				Commands: []string{
					"sudo apt update && sudo apt upgrade -y",
					"sudo yum update -y",
				},
				Difficulty: DifficultyEasy,
				Category:   StepPatch,
			},
			{
				ID:          2,
				Title:       "Configure Sudo Restrictions",
				Description: "Limit sudo access and configure proper permissions",
				Commands: []string{
					"sudo visudo",
					"# Review and restrict sudo permissions",
				},
				Difficulty: DifficultyMedium,
				Category:   StepConfiguration,
			},
			{
				ID:          3,
				Title:       "Enable System Monitoring",
				Description: "Set up monitoring for privilege escalation attempts",
				Difficulty:  DifficultyAdvanced,
				Category:    StepMonitoring,
			},
		},
	},
}

// All returns every template
func All() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// Get returns the template with the given id
func Get(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// ByCategory returns the templates of a category
func ByCategory(c Category) []Template {
	var out []Template
	for _, t := range templates {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

// BySeverity returns the templates rated at a severity
func BySeverity(severity string) []Template {
	var out []Template
	for _, t := range templates {
		if t.Severity == severity {
			out = append(out, t)
		}
	}
	return out
}
