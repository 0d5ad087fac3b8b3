package readme

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/readmegen-cli/internal/github"
)

const promptHeader = "Generate a comprehensive, professional README.md file for this GitHub repository with plenty of emojis to make it engaging and visually appealing:"

// promptOutline is the fixed document outline and formatting directives.
// It never depends on repository data.
const promptOutline = `Create a professional, comprehensive README that includes:

1. 🎯 Project title with relevant emojis and description
2. 📊 Badges (build status, license, language, stars, forks, etc.)
3. 📋 Table of contents with emoji bullets
4. ✨ Features overview with emoji bullets
5. 🚀 Quick start/Getting started section
6. 📦 Installation instructions with step-by-step guide
7. 💻 Usage examples with code blocks
8. 📊 Project structure table showing key directories/files
9. 🛠️ API documentation table (if applicable)
10. 📈 Performance metrics table (if applicable)
11. 🤝 Contributing guidelines with table of contribution types
12. 📄 License information
13. 👥 Authors/Contributors section with table format
14. 🙏 Acknowledgments
15. 📞 Contact/Support information (include email if provided)

IMPORTANT FORMATTING GUIDELINES:
- Use relevant emojis for each section header (🎯, 🚀, 📦, 💻, etc.)
- Add emojis to feature lists and important points
- Use technology-specific emojis when mentioning languages/frameworks
- Include status emojis (✅, ❌, ⚠️) for different states
- Use directional emojis (➡️, ⬇️, ⬆️) for navigation
- Add celebration emojis (🎉, ✨, 🌟) for achievements

TABLES TO INCLUDE:
- Project structure table with directories and descriptions
- Feature comparison table (if applicable)
- API endpoints table (if it's an API project)
- Contributing guidelines table with types of contributions
- Authors/Contributors table with roles and contact info
- Dependencies table with versions and purposes
- Browser compatibility table (if web project)
- Performance benchmarks table (if applicable)

Make it engaging, professional, and suitable for production use. Use proper markdown formatting with headers, code blocks, lists, tables, and links. Include placeholder examples where specific implementation details aren't available.

The README should be well-structured, follow GitHub best practices, and be visually appealing with consistent emoji usage and well-formatted tables throughout.`

// BuildPrompt renders the generation prompt for repo. The contact block is
// appended to the details only when email is non-empty after trimming.
func BuildPrompt(repo *github.Repository, email string) string {
	topics := strings.Join(repo.Topics, ", ")
	if topics == "" {
		topics = "None"
	}

	var sb strings.Builder
	sb.WriteString(promptHeader)
	sb.WriteString("\n\nRepository Details:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", repo.Name)
	fmt.Fprintf(&sb, "- Full Name: %s\n", repo.FullName)
	fmt.Fprintf(&sb, "- Description: %s\n", repo.DescriptionOr("No description provided"))
	fmt.Fprintf(&sb, "- Language: %s\n", repo.LanguageOr("Not specified"))
	fmt.Fprintf(&sb, "- Stars: %d\n", repo.StargazersCount)
	fmt.Fprintf(&sb, "- Forks: %d\n", repo.ForksCount)
	fmt.Fprintf(&sb, "- Topics: %s\n", topics)
	fmt.Fprintf(&sb, "- License: %s\n", repo.LicenseNameOr("Not specified"))
	fmt.Fprintf(&sb, "- Has Issues: %t\n", repo.HasIssues)
	fmt.Fprintf(&sb, "- Has Wiki: %t\n", repo.HasWiki)
	fmt.Fprintf(&sb, "- Default Branch: %s\n", repo.DefaultBranch)
	fmt.Fprintf(&sb, "- Created: %s\n", HumanDate(repo.CreatedAt))
	fmt.Fprintf(&sb, "- Last Updated: %s", HumanDate(repo.UpdatedAt))
	if email = strings.TrimSpace(email); email != "" {
		sb.WriteString(contactBlock(email))
	}
	sb.WriteString("\n\n")
	sb.WriteString(promptOutline)
	return sb.String()
}

func contactBlock(email string) string {
	return "\n\nContact Information:\n- Email: " + email +
		"\n\nPlease include this email in the contact/support section of the README."
}

// HumanDate renders an ISO-8601 timestamp as M/D/YYYY in UTC.
// Unparseable input is returned unchanged; empty input becomes "Unknown".
func HumanDate(iso string) string {
	if strings.TrimSpace(iso) == "" {
		return "Unknown"
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.UTC().Format("1/2/2006")
}
