// Package telegram exposes the menu calendar as a Telegram bot. Every chat
// command runs through the same calendar controller the other front-ends use.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/calendar"
	"meal-calendar/internal/config"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/metrics"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/recipe"
	"meal-calendar/internal/shared"
	"meal-calendar/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// API is the part of the Telegram client the bot talks to.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// RecipeClipper saves the recipe found at a URL.
type RecipeClipper interface {
	ClipURL(ctx context.Context, url string) (recipe.Recipe, error)
}

// MenuPlanner fills open days with recipes.
type MenuPlanner interface {
	Suggest(ctx context.Context, rng calday.Range, request string) ([]planner.Suggestion, error)
	Apply(ctx context.Context, suggestions []planner.Suggestion) ([]menu.Entry, []calday.Day, error)
}

// Deps are the collaborators a Bot needs.
type Deps struct {
	Loader *calendar.Loader
	// Clipper may be nil; URLs are then answered with a hint.
	Clipper RecipeClipper
	// Planner may be nil; /suggest is then unavailable.
	Planner   MenuPlanner
	Logger    *zap.Logger
	Location  *time.Location
	AllowUser func(id int64) bool
	DataPaths []string
}

// Bot wraps the Telegram API and the calendar loader.
type Bot struct {
	api       API
	loader    *calendar.Loader
	clipper   RecipeClipper
	planner   MenuPlanner
	logger    *zap.Logger
	loc       *time.Location
	allow     func(int64) bool
	dataPaths []string
	now       func() time.Time
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, d Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}

	if d.AllowUser == nil {
		d.AllowUser = cfg.AllowsUser
	}
	if d.Location == nil {
		d.Location = cfg.Location()
	}
	b := New(api, d)
	b.logger.Info("telegram bot authorized",
		zap.String("account", api.Self.UserName),
		zap.String("webhook", resp.Description))
	return b, nil
}

// New builds a Bot on an already connected API.
func New(api API, d Deps) *Bot {
	b := &Bot{
		api:       api,
		loader:    d.Loader,
		clipper:   d.Clipper,
		planner:   d.Planner,
		logger:    d.Logger,
		loc:       d.Location,
		allow:     d.AllowUser,
		dataPaths: d.DataPaths,
		now:       time.Now,
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.loc == nil {
		b.loc = time.Local
	}
	if b.allow == nil {
		b.allow = func(int64) bool { return true }
	}
	return b
}

// RegisterHandlers registers the webhook handler on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook", b.handleWebhook)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	// Telegram only waits a few seconds for the reply.
	go b.HandleUpdate(context.WithoutCancel(r.Context()), update)
}

// HandleUpdate answers one update from Telegram.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.From == nil || !b.allow(q.From.ID) || q.Message == nil {
			return
		}
		b.handleCallbackQuery(ctx, q)
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || !b.allow(msg.From.ID) {
			if msg.From != nil {
				b.logger.Warn("unauthorized access attempt",
					zap.Int64("user_id", msg.From.ID),
					zap.String("username", msg.From.UserName))
			}
			return
		}
		b.processMessage(ctx, msg)
	}
}

func (b *Bot) today() calday.Day {
	return calday.Of(b.now(), b.loc)
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID

	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		b.handleClip(ctx, chatID, text)
		return
	}

	cmd, args := parseCommand(text)
	switch cmd {
	case "today":
		b.reply(chatID, b.todayText(ctx), nil)
	case "week":
		anchor, err := b.dayArg(args)
		if err != nil {
			b.reply(chatID, errorText(err), nil)
			return
		}
		b.sendView(ctx, chatID, calendar.ModeWeek, anchor)
	case "month":
		anchor, err := b.monthArg(args)
		if err != nil {
			b.reply(chatID, errorText(err), nil)
			return
		}
		b.sendView(ctx, chatID, calendar.ModeMonth, anchor)
	case "assign":
		b.reply(chatID, b.assign(ctx, args), nil)
	case "move":
		b.reply(chatID, b.move(ctx, args), nil)
	case "clear":
		b.reply(chatID, b.clear(ctx, args), nil)
	case "suggest":
		b.reply(chatID, b.suggest(ctx, args), nil)
	case "shopping":
		b.reply(chatID, b.shoppingText(ctx, args), nil)
	case "health":
		b.reply(chatID, formatHealth(metrics.GetSysHealth(b.dataPaths...)), nil)
	default:
		b.reply(chatID, helpText, nil)
	}
}

const helpText = `🍽 *献立カレンダー*

/today 今日の献立
/week [YYYY-MM-DD] 週の献立
/month [YYYY-MM] 月の献立
/assign YYYY-MM-DD レシピ名またはメモ
/move YYYY-MM-DD YYYY-MM-DD 献立を移動
/clear YYYY-MM-DD 献立を削除
/suggest [リクエスト] 今週の空いた日に献立を提案して登録
/shopping [YYYY-MM-DD] 週の買い物リスト
/health サーバーの状態

レシピのURLを送ると保存します。`

// parseCommand splits "/cmd@bot args" into "cmd" and "args".
func parseCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	head, args, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(args)
}

func (b *Bot) dayArg(args string) (calday.Day, error) {
	if args == "" {
		return b.today(), nil
	}
	d, err := calday.Parse(strings.Fields(args)[0], b.loc)
	if err != nil {
		return calday.Day{}, shared.Validation("日付は YYYY-MM-DD で指定してください")
	}
	return d, nil
}

func (b *Bot) monthArg(args string) (calday.Day, error) {
	if args == "" {
		t := b.today()
		return calday.New(t.Year, t.Month, 1), nil
	}
	t, err := time.Parse("2006-01", strings.Fields(args)[0])
	if err != nil {
		return calday.Day{}, shared.Validation("月は YYYY-MM で指定してください")
	}
	return calday.New(t.Year(), t.Month(), 1), nil
}

// load mounts a calendar on anchor and waits for its entries.
func (b *Bot) load(ctx context.Context, mode calendar.Mode, anchor calday.Day) calendar.State {
	s := calendar.NewState(anchor)
	s.Mode = mode
	return b.loader.Start(ctx, s)
}

// open loads the week around day and clicks it.
func (b *Bot) open(ctx context.Context, day calday.Day) calendar.State {
	s := b.load(ctx, calendar.ModeWeek, day)
	if s.FetchErr != "" {
		return s
	}
	return b.loader.Dispatch(ctx, s, calendar.ClickDate{Day: day})
}

func (b *Bot) view(ctx context.Context, mode calendar.Mode, anchor calday.Day) (string, *tgbotapi.InlineKeyboardMarkup) {
	s := b.load(ctx, mode, anchor)
	if s.FetchErr != "" {
		return "❌ " + escapeMarkdown(s.FetchErr), nil
	}
	cells := calendar.Cells(s, b.today())
	if mode == calendar.ModeWeek {
		kb := weekKeyboard(s.WeekAnchor)
		return formatWeek(cells), &kb
	}
	kb := monthKeyboard(s.Month)
	return formatMonth(s.Month, cells), &kb
}

func (b *Bot) sendView(ctx context.Context, chatID int64, mode calendar.Mode, anchor calday.Day) {
	text, kb := b.view(ctx, mode, anchor)
	b.reply(chatID, text, kb)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", zap.Error(err))
	}

	mode, anchor, err := parseCallback(q.Data)
	if err != nil {
		b.logger.Info("ignoring callback", zap.String("data", q.Data), zap.Error(err))
		return
	}

	text, kb := b.view(ctx, mode, anchor)
	edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = kb
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn("failed to edit calendar message", zap.Error(err))
	}
}

func (b *Bot) todayText(ctx context.Context) string {
	today := b.today()
	s := b.load(ctx, calendar.ModeWeek, today)
	if s.FetchErr != "" {
		return "❌ " + escapeMarkdown(s.FetchErr)
	}
	e, ok := s.Index().Lookup(today)
	if !ok {
		return fmt.Sprintf("📅 *%s* の献立はまだ決まっていません", dayLabel(today))
	}
	return fmt.Sprintf("📅 *%s* の献立\n\n%s", dayLabel(today), formatEntry(e))
}

func (b *Bot) assign(ctx context.Context, args string) string {
	dateArg, rest, _ := strings.Cut(args, " ")
	rest = strings.TrimSpace(rest)
	if dateArg == "" || rest == "" {
		return "使い方: /assign YYYY-MM-DD レシピ名またはメモ"
	}
	day, err := b.dayArg(dateArg)
	if err != nil {
		return errorText(err)
	}

	s := b.open(ctx, day)
	if s.FetchErr != "" {
		return "❌ " + escapeMarkdown(s.FetchErr)
	}
	if s.Phase == calendar.PhaseViewing {
		return fmt.Sprintf("⚠️ *%s* にはすでに献立があります: %s", dayLabel(day), escapeMarkdown(s.SelectedEntry.Title()))
	}

	ev := calendar.SubmitCreate{Memo: rest}
	if r, ok := recipeNamed(s.Recipes, rest); ok {
		ev = calendar.SubmitCreate{RecipeID: r.ID}
	}
	s = b.loader.Dispatch(ctx, s, ev)
	if s.Err != "" {
		return "❌ " + escapeMarkdown(s.Err)
	}
	return fmt.Sprintf("✅ *%s* に「%s」を登録しました", dayLabel(day), escapeMarkdown(rest))
}

func (b *Bot) move(ctx context.Context, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "使い方: /move YYYY-MM-DD YYYY-MM-DD"
	}
	from, err := b.dayArg(fields[0])
	if err != nil {
		return errorText(err)
	}
	to, err := b.dayArg(fields[1])
	if err != nil {
		return errorText(err)
	}

	s := b.open(ctx, from)
	if s.FetchErr != "" {
		return "❌ " + escapeMarkdown(s.FetchErr)
	}
	if s.Phase != calendar.PhaseViewing {
		return fmt.Sprintf("⚠️ *%s* に献立はありません", dayLabel(from))
	}
	s = b.loader.Dispatch(ctx, s, calendar.Edit{})
	s = b.loader.Dispatch(ctx, s, calendar.SubmitUpdate{Date: &to})
	if s.Err != "" {
		return "❌ " + escapeMarkdown(s.Err)
	}
	return fmt.Sprintf("✅ 献立を *%s* から *%s* に移動しました", dayLabel(from), dayLabel(to))
}

func (b *Bot) clear(ctx context.Context, args string) string {
	if args == "" {
		return "使い方: /clear YYYY-MM-DD"
	}
	day, err := b.dayArg(args)
	if err != nil {
		return errorText(err)
	}

	s := b.open(ctx, day)
	if s.FetchErr != "" {
		return "❌ " + escapeMarkdown(s.FetchErr)
	}
	if s.Phase != calendar.PhaseViewing {
		return fmt.Sprintf("⚠️ *%s* に献立はありません", dayLabel(day))
	}
	title := s.SelectedEntry.Title()
	s = b.loader.Dispatch(ctx, s, calendar.ConfirmDelete{})
	s = b.loader.Dispatch(ctx, s, calendar.SubmitDelete{})
	if s.Err != "" {
		return "❌ " + escapeMarkdown(s.Err)
	}
	return fmt.Sprintf("🗑 *%s* の「%s」を削除しました", dayLabel(day), escapeMarkdown(title))
}

func (b *Bot) suggest(ctx context.Context, request string) string {
	if b.planner == nil {
		return "⚠️ 献立の提案は設定されていません"
	}
	rng := calendar.WeekRange(b.today())
	suggestions, err := b.planner.Suggest(ctx, rng, request)
	if err != nil {
		return errorText(err)
	}
	if len(suggestions) == 0 {
		return "✅ 今週はすべての日に献立があります"
	}
	created, skipped, err := b.planner.Apply(ctx, suggestions)
	if err != nil {
		return errorText(err)
	}
	return formatSuggestions(suggestions, len(created), skipped)
}

func (b *Bot) shoppingText(ctx context.Context, args string) string {
	anchor, err := b.dayArg(args)
	if err != nil {
		return errorText(err)
	}
	s := b.load(ctx, calendar.ModeWeek, anchor)
	if s.FetchErr != "" {
		return "❌ " + escapeMarkdown(s.FetchErr)
	}
	return formatShopping(s.VisibleRange(), shopping.Build(s.Entries))
}

func (b *Bot) handleClip(ctx context.Context, chatID int64, url string) {
	if b.clipper == nil {
		b.reply(chatID, "⚠️ レシピの取り込みは設定されていません", nil)
		return
	}

	sent, err := b.api.Send(withMarkdown(tgbotapi.NewMessage(chatID, "✂️ *レシピを取り込み中...*")))
	if err != nil {
		b.logger.Warn("failed to send initial reply", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	var text string
	rec, err := b.clipper.ClipURL(ctx, url)
	if err != nil {
		b.logger.Info("error clipping recipe", zap.String("url", url), zap.Error(err))
		text = errorText(err)
	} else {
		text = fmt.Sprintf("✅ *レシピを保存しました*\n\n%s (%s)\n材料 %d 品・手順 %d",
			escapeMarkdown(rec.Name), escapeMarkdown(rec.Category), len(rec.Ingredients), len(rec.Steps))
	}
	edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn("failed to edit clip reply", zap.Error(err))
	}
}

func (b *Bot) reply(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := withMarkdown(tgbotapi.NewMessage(chatID, text))
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func withMarkdown(msg tgbotapi.MessageConfig) tgbotapi.MessageConfig {
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

func recipeNamed(recipes []recipe.Recipe, name string) (recipe.Recipe, bool) {
	for _, r := range recipes {
		if r.Name == name {
			return r, true
		}
	}
	return recipe.Recipe{}, false
}

// errorText shows user-facing messages as is and hides internal detail.
func errorText(err error) string {
	switch shared.KindOf(err) {
	case shared.KindValidation, shared.KindConflict, shared.KindNotFound:
		return "❌ " + escapeMarkdown(shared.MessageOf(err))
	case shared.KindTransport:
		return "❌ 通信に失敗しました。しばらくしてからもう一度お試しください"
	}
	return "❌ エラーが発生しました"
}
