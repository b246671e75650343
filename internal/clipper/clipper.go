// Package clipper turns a recipe web page into a recipe.Recipe. Pages that
// publish schema.org Recipe JSON-LD are read directly; anything else goes to
// the language model when one is configured.
package clipper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"meal-calendar/internal/llm"
	"meal-calendar/internal/recipe"
	"meal-calendar/internal/shared"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoRecipe is returned when a page has no structured recipe and no model
// is available to read it.
var ErrNoRecipe = &shared.Error{Kind: shared.KindValidation, Message: "ページからレシピを読み取れませんでした"}

// maxPromptText bounds the page text sent to the model.
const maxPromptText = 12000

// Clipper handles fetching and extracting recipes from URLs.
type Clipper struct {
	httpClient *http.Client
	textGen    llm.TextGenerator
}

// ExtractedRecipe represents the data structured by the AI.
type ExtractedRecipe struct {
	Title       string              `json:"title"`
	Category    string              `json:"category"`
	Ingredients []recipe.Ingredient `json:"ingredients"`
	Steps       []string            `json:"steps"`
	CookingTime int                 `json:"cooking_time_minutes"`
	Servings    int                 `json:"servings"`
	ImageURL    string              `json:"image_url"`
}

// NewClipper creates a new Clipper instance. textGen may be nil, in which
// case only pages with structured data can be clipped.
func NewClipper(textGen llm.TextGenerator) *Clipper {
	return &Clipper{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		textGen:    textGen,
	}
}

// Clip fetches url and extracts its recipe. The source URL is recorded in
// the memo. The result is normalized but not stored.
func (c *Clipper) Clip(ctx context.Context, url string) (recipe.Recipe, error) {
	doc, err := c.fetch(ctx, url)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to fetch content: %w", err)
	}

	r, ok := fromJSONLD(doc)
	if !ok {
		if c.textGen == nil {
			return recipe.Recipe{}, ErrNoRecipe
		}
		r, err = c.extractWithLLM(ctx, cleanText(doc))
		if err != nil {
			return recipe.Recipe{}, err
		}
	}

	if r.Category == "" {
		r.Category = recipe.CategoryOther
	}
	r.Memo = strings.TrimSpace(r.Memo + "\n出典: " + url)
	r.Normalize()
	if err := r.Validate(); err != nil {
		return recipe.Recipe{}, err
	}
	return r, nil
}

func (c *Clipper) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, shared.Validation("URL が正しくありません: %s", url)
	}
	req.Header.Set("User-Agent", "meal-calendar/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shared.Transport("failed to fetch URL", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, shared.Transport("failed to fetch URL", fmt.Errorf("status %d", resp.StatusCode))
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// cleanText strips page chrome and returns the visible body text.
func cleanText(doc *goquery.Document) string {
	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, header, footer, iframe, aside, .ads, #ads").Remove()

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if r := []rune(text); len(r) > maxPromptText {
		text = string(r[:maxPromptText])
	}
	return text
}

func (c *Clipper) extractWithLLM(ctx context.Context, content string) (recipe.Recipe, error) {
	prompt := fmt.Sprintf(`
You are a recipe extraction expert. Extract the recipe details from the following page text.
Return the result strictly as a JSON object with this structure:
{
  "title": "Recipe Title",
  "category": "和食, 洋食, 中華 or その他",
  "ingredients": [{"name": "ingredient", "quantity": "amount"}, ...],
  "steps": ["Step 1 description", "Step 2 description", ...],
  "cooking_time_minutes": 30,
  "servings": 2,
  "image_url": ""
}
Keep ingredient names and steps in the language of the page.

Page text:
%s
`, content)

	resp, err := c.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("ai extraction failed: %w", err)
	}

	var extracted ExtractedRecipe
	if err := json.Unmarshal([]byte(stripFences(resp)), &extracted); err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to parse AI response: %w. Response: %s", err, resp)
	}
	if strings.TrimSpace(extracted.Title) == "" {
		return recipe.Recipe{}, ErrNoRecipe
	}

	r := recipe.Recipe{
		Name:        extracted.Title,
		Category:    extracted.Category,
		Ingredients: extracted.Ingredients,
		ImageURL:    extracted.ImageURL,
	}
	for _, s := range extracted.Steps {
		r.Steps = append(r.Steps, recipe.Step{Description: s})
	}
	if extracted.CookingTime > 0 {
		r.CookingTime = &extracted.CookingTime
	}
	if extracted.Servings > 0 {
		r.Servings = &extracted.Servings
	}
	return r, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// fromJSONLD reads the first schema.org Recipe found in the page's
// ld+json blocks, including ones nested in @graph.
func fromJSONLD(doc *goquery.Document) (recipe.Recipe, bool) {
	var found map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return true
		}
		found = findRecipe(v)
		return found == nil
	})
	if found == nil {
		return recipe.Recipe{}, false
	}

	r := recipe.Recipe{
		Name:     str(found["name"]),
		Category: firstString(found["recipeCategory"]),
		ImageURL: imageURL(found["image"]),
		Tags:     str(found["keywords"]),
	}
	for _, line := range stringList(found["recipeIngredient"]) {
		r.Ingredients = append(r.Ingredients, splitIngredient(line))
	}
	for _, step := range instructions(found["recipeInstructions"]) {
		r.Steps = append(r.Steps, recipe.Step{Description: step})
	}
	if m, err := isoMinutes(firstString(found["totalTime"])); err == nil && m > 0 {
		r.CookingTime = &m
	} else if m, err := isoMinutes(firstString(found["cookTime"])); err == nil && m > 0 {
		r.CookingTime = &m
	}
	if n := leadingInt(firstString(found["recipeYield"])); n > 0 {
		r.Servings = &n
	}
	return r, r.Name != ""
}

func findRecipe(v any) map[string]any {
	switch v := v.(type) {
	case []any:
		for _, item := range v {
			if r := findRecipe(item); r != nil {
				return r
			}
		}
	case map[string]any:
		if isRecipeType(v["@type"]) {
			return v
		}
		if g, ok := v["@graph"]; ok {
			return findRecipe(g)
		}
	}
	return nil
}

func isRecipeType(t any) bool {
	for _, s := range stringList(t) {
		if s == "Recipe" {
			return true
		}
	}
	return false
}

func str(v any) string {
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// stringList flattens a string or an array of strings.
func stringList(v any) []string {
	switch v := v.(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			if s := str(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := str(v); s != "" {
		return []string{s}
	}
	return nil
}

func firstString(v any) string {
	if ss := stringList(v); len(ss) > 0 {
		return ss[0]
	}
	return ""
}

func imageURL(v any) string {
	switch v := v.(type) {
	case map[string]any:
		return str(v["url"])
	case []any:
		if len(v) > 0 {
			return imageURL(v[0])
		}
	}
	return str(v)
}

// instructions flattens HowToStep, HowToSection and plain string forms.
func instructions(v any) []string {
	switch v := v.(type) {
	case string:
		var out []string
		for _, line := range strings.Split(v, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, instructions(item)...)
		}
		return out
	case map[string]any:
		if items, ok := v["itemListElement"]; ok {
			return instructions(items)
		}
		if t := str(v["text"]); t != "" {
			return []string{t}
		}
		return instructions(v["name"])
	}
	return nil
}

var quantityPattern = regexp.MustCompile(`^(.+?)[\s　]+([0-9０-９½¼¾大小少適].*)$`)

// splitIngredient separates "玉ねぎ 1個" or "玉ねぎ：1個" into name and quantity.
func splitIngredient(line string) recipe.Ingredient {
	line = strings.TrimSpace(line)
	for _, sep := range []string{":", "："} {
		if name, qty, ok := strings.Cut(line, sep); ok {
			return recipe.Ingredient{Name: strings.TrimSpace(name), Quantity: strings.TrimSpace(qty)}
		}
	}
	if m := quantityPattern.FindStringSubmatch(line); m != nil {
		return recipe.Ingredient{Name: strings.TrimSpace(m[1]), Quantity: strings.TrimSpace(m[2])}
	}
	return recipe.Ingredient{Name: line}
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:\d+S)?)?$`)

// isoMinutes converts an ISO 8601 duration such as PT1H30M to minutes.
func isoMinutes(s string) (int, error) {
	m := isoDuration.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0, errors.New("not an ISO 8601 duration")
	}
	mins := 0
	for i, mult := range []int{24 * 60, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, err
		}
		mins += n * mult
	}
	return mins, nil
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
