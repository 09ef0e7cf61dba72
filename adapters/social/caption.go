package social

import (
	"fmt"
	"strings"

	"realestatesync/adapters"
	"realestatesync/models"
)

// maxDescriptionLen bounds the description excerpt in the caption.
const maxDescriptionLen = 300

// hashtags is the fixed tag set appended to every post.
const hashtags = "#RealEstate #Property #ForSale"

// BuildCaption renders the feed post text: headline, price line,
// bed/bath/area line, location line, truncated description, hashtags.
func BuildCaption(p *models.Property) string {
	var b strings.Builder

	b.WriteString("🏠 " + p.Title + "\n\n")
	b.WriteString("💶 " + adapters.FormatPrice(p.Price) + " EUR\n")
	fmt.Fprintf(&b, "🛏 %d bed · 🛁 %d bath · 📐 %.0f m²\n", p.Bedrooms, p.Bathrooms, p.Area)
	if loc := p.Location(); loc != "" {
		b.WriteString("📍 " + loc + "\n")
	}

	if desc := truncateDescription(p.Description); desc != "" {
		b.WriteString("\n" + desc + "\n")
	}

	b.WriteString("\n" + hashtags)
	return b.String()
}

// truncateDescription cuts the description at maxDescriptionLen runes,
// appending an ellipsis when anything was removed.
func truncateDescription(desc string) string {
	desc = strings.TrimSpace(desc)
	runes := []rune(desc)
	if len(runes) <= maxDescriptionLen {
		return desc
	}
	return strings.TrimSpace(string(runes[:maxDescriptionLen])) + "…"
}
