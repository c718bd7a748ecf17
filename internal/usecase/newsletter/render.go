package newsletter

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"recipe-digest/internal/domain"
)

// DateLayout задаёт формат даты в шапке и теме письма.
const DateLayout = "January 02, 2006"

const (
	placeholder   = "N/A"
	untitled      = "Untitled Recipe"
	unknownAuthor = "Unknown"
)

var platformRoots = map[string]string{
	"tiktok": "https://www.tiktok.com",
}

// Render собирает HTML выпуска. Дата вычисляется один раз, поэтому все карточки
// и шапка показывают одно и то же значение.
func Render(batch domain.RecipeBatch, when time.Time) string {
	date := when.Format(DateLayout)

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Top TikTok Recipes</title>
</head>
<body style="margin: 0; padding: 0; background-color: #f9fafb; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
`)
	writeHeader(&b, len(batch), date)
	for i, rec := range batch {
		writeCard(&b, i+1, rec)
	}
	writeFooter(&b)
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

func writeHeader(b *strings.Builder, count int, date string) {
	b.WriteString(`<div style="text-align: center; padding: 40px 20px;">` + "\n")
	b.WriteString(`<h1 style="color: #1f2937; margin: 0; font-size: 36px;">🍳 TikTok Recipe Roundup</h1>` + "\n")
	fmt.Fprintf(b, `<p style="color: #6b7280; margin: 10px 0 0 0; font-size: 18px;">Top %d Trending Recipes • %s</p>`+"\n", count, escapeHTML(date))
	b.WriteString("</div>\n")
}

func writeCard(b *strings.Builder, rank int, rec domain.RecipeRecord) {
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		title = untitled
	}
	author := strings.TrimSpace(rec.Source.Author)
	if author == "" {
		author = unknownAuthor
	}
	profile := profileURL(rec.Source.Platform, author)

	b.WriteString(`<div style="background-color: white; border-radius: 12px; padding: 25px; margin-bottom: 30px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">` + "\n")
	b.WriteString(`<div style="border-left: 4px solid #10b981; padding-left: 15px; margin-bottom: 20px;">` + "\n")
	fmt.Fprintf(b, `<h2 style="margin: 0 0 10px 0; color: #1f2937;">#%d %s</h2>`+"\n", rank, escapeHTML(title))
	fmt.Fprintf(b, `<a href="%s" style="color: #ff0050; text-decoration: none; font-weight: 600; font-size: 14px;">📱 @%s</a>`+"\n",
		escapeHTML(profile), escapeHTML(author))
	fmt.Fprintf(b, `<span style="color: #6b7280; font-size: 14px;">❤️ %s likes • 👁️ %s views</span>`+"\n",
		humanize.Comma(rec.Source.Likes), humanize.Comma(rec.Source.Views))
	b.WriteString("</div>\n")

	fmt.Fprintf(b, `<p style="color: #4b5563; line-height: 1.6; font-size: 16px;">%s</p>`+"\n", escapeHTML(strings.TrimSpace(rec.Description)))

	b.WriteString(`<div style="margin: 20px 0;">` + "\n")
	writeFact(b, "⏱️ Prep:", rec.PrepTime)
	writeFact(b, "🍳 Cook:", rec.CookTime)
	writeFact(b, "🍽️ Serves:", rec.Servings)
	b.WriteString("</div>\n")

	b.WriteString(`<h3 style="color: #1f2937; margin-bottom: 15px;">🛒 Ingredients</h3>` + "\n")
	writeList(b, "ul", rec.Ingredients)
	b.WriteString(`<h3 style="color: #1f2937; margin-bottom: 15px;">👨‍🍳 Instructions</h3>` + "\n")
	writeList(b, "ol", rec.Instructions)

	if tips := filterNonEmptyStrings(rec.Tips); len(tips) > 0 {
		b.WriteString(`<div style="background-color: #fff9e6; padding: 15px; border-radius: 8px; margin-top: 15px;">` + "\n")
		b.WriteString(`<h4 style="margin-top: 0; color: #f59e0b;">💡 Tips</h4>` + "\n")
		writeList(b, "ul", tips)
		b.WriteString("</div>\n")
	}

	b.WriteString(`<div style="margin-top: 20px; padding-top: 20px; border-top: 1px solid #e5e7eb;">` + "\n")
	fmt.Fprintf(b, `<a href="%s" style="display: inline-block; background-color: #10b981; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; font-weight: 600;">Watch Original Video by @%s →</a>`+"\n",
		escapeHTML(safeURL(rec.Source.URL)), escapeHTML(author))
	b.WriteString(`<p style="color: #9ca3af; font-size: 12px; margin-top: 10px;">❤️ Support the creator by liking and following on TikTok!</p>` + "\n")
	b.WriteString("</div>\n")
	b.WriteString("</div>\n")
}

func writeFact(b *strings.Builder, label string, value *string) {
	text := placeholder
	if value != nil {
		if v := strings.TrimSpace(*value); v != "" {
			text = v
		}
	}
	fmt.Fprintf(b, `<span style="color: #6b7280; font-size: 13px;">%s</span> <strong style="color: #1f2937;">%s</strong>`+"\n", label, escapeHTML(text))
}

func writeList(b *strings.Builder, tag string, items []string) {
	b.WriteString("<" + tag + ` style="color: #4b5563; line-height: 1.8; padding-left: 20px;">` + "\n")
	for _, item := range filterNonEmptyStrings(items) {
		b.WriteString("<li>" + escapeHTML(item) + "</li>\n")
	}
	b.WriteString("</" + tag + ">\n")
}

func writeFooter(b *strings.Builder) {
	b.WriteString(`<div style="text-align: center; padding: 40px 20px; color: #9ca3af; font-size: 14px;">
<p style="margin-bottom: 15px;">⭐ All recipes are credited to their original TikTok creators.<br>
Please support them by watching, liking, and following!</p>
<p>You're receiving this because you subscribed to TikTok Recipe Newsletter</p>
<p style="margin-top: 10px;">Made with ❤️ by your friendly recipe bot</p>
</div>
`)
}

// profileURL строит ссылку на профиль автора вида <корень платформы>/@<автор>.
func profileURL(platform, author string) string {
	root, ok := platformRoots[strings.ToLower(strings.TrimSpace(platform))]
	if !ok {
		root = platformRoots["tiktok"]
	}
	return root + "/@" + url.PathEscape(author)
}

// safeURL пропускает только http(s) ссылки, остальное заменяется на "#".
func safeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "#"
	}
	return raw
}

func filterNonEmptyStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func escapeHTML(s string) string {
	return html.EscapeString(s)
}
