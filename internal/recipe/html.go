package recipe

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FromHTML builds a recipe from a blog post body. The first <ul> holds the
// ingredients ("name: quantity" per item) and the first <ol> holds the steps.
// An element with class recipe-meta may carry data-category,
// data-cooking-time, data-servings and data-tags attributes.
func FromHTML(title, body string) (Recipe, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Recipe{}, fmt.Errorf("failed to parse recipe html: %w", err)
	}

	rec := Recipe{
		Name:     strings.TrimSpace(title),
		Category: CategoryOther,
	}

	doc.Find("ul").First().Find("li").Each(func(_ int, s *goquery.Selection) {
		rec.Ingredients = append(rec.Ingredients, parseIngredient(s.Text()))
	})
	doc.Find("ol").First().Find("li").Each(func(i int, s *goquery.Selection) {
		rec.Steps = append(rec.Steps, Step{Order: i + 1, Description: strings.TrimSpace(s.Text())})
	})

	meta := doc.Find(".recipe-meta").First()
	if v, ok := meta.Attr("data-category"); ok && strings.TrimSpace(v) != "" {
		rec.Category = v
	}
	if v, ok := meta.Attr("data-tags"); ok {
		rec.Tags = v
	}
	rec.CookingTime = attrInt(meta, "data-cooking-time")
	rec.Servings = attrInt(meta, "data-servings")
	if img, ok := doc.Find("img").First().Attr("src"); ok {
		rec.ImageURL = img
	}

	rec.Normalize()
	return rec, nil
}

// ToHTML renders a recipe in the layout FromHTML reads back.
func ToHTML(r Recipe) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `<p class="recipe-meta" data-category="%s"`, html.EscapeString(r.Category))
	if r.CookingTime != nil {
		fmt.Fprintf(&sb, ` data-cooking-time="%d"`, *r.CookingTime)
	}
	if r.Servings != nil {
		fmt.Fprintf(&sb, ` data-servings="%d"`, *r.Servings)
	}
	if r.Tags != "" {
		fmt.Fprintf(&sb, ` data-tags="%s"`, html.EscapeString(r.Tags))
	}
	sb.WriteString(">")
	sb.WriteString(html.EscapeString(metaLine(r)))
	sb.WriteString("</p>")

	if r.ImageURL != "" {
		fmt.Fprintf(&sb, `<img src="%s" alt="%s">`, html.EscapeString(r.ImageURL), html.EscapeString(r.Name))
	}

	sb.WriteString("<h2>材料</h2><ul>")
	for _, ing := range r.Ingredients {
		sb.WriteString("<li>")
		sb.WriteString(html.EscapeString(ing.Name))
		if ing.Quantity != "" {
			sb.WriteString(": ")
			sb.WriteString(html.EscapeString(ing.Quantity))
		}
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul>")

	sb.WriteString("<h2>作り方</h2><ol>")
	for _, s := range r.Steps {
		fmt.Fprintf(&sb, "<li>%s</li>", html.EscapeString(s.Description))
	}
	sb.WriteString("</ol>")

	if r.Memo != "" {
		fmt.Fprintf(&sb, "<hr><p>%s</p>", html.EscapeString(r.Memo))
	}
	return sb.String()
}

func metaLine(r Recipe) string {
	parts := []string{r.Category}
	if r.CookingTime != nil {
		parts = append(parts, fmt.Sprintf("%d分", *r.CookingTime))
	}
	if r.Servings != nil {
		parts = append(parts, fmt.Sprintf("%d人分", *r.Servings))
	}
	return strings.Join(parts, " | ")
}

func parseIngredient(text string) Ingredient {
	text = strings.TrimSpace(text)
	for _, sep := range []string{":", "："} {
		if name, qty, ok := strings.Cut(text, sep); ok {
			return Ingredient{Name: strings.TrimSpace(name), Quantity: strings.TrimSpace(qty)}
		}
	}
	return Ingredient{Name: text}
}

func attrInt(s *goquery.Selection, name string) *int {
	v, ok := s.Attr(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}
