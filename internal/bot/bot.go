package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"todoey/internal/color"
	"todoey/internal/model"
	"todoey/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageCategoryName
	stageItemTitle
	stageCategoryRename
	stageItemRename
)

// chatState is what the bot remembers between messages of one chat.
type chatState struct {
	categoryID string // open category, empty on the categories screen
	query      string // active item filter
	stage      conversationStage
	target     string // entity the current prompt is about
}

// Sender is the part of the Telegram API the bot talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Poller delivers updates; *tgbotapi.BotAPI implements it.
type Poller interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Categories *service.CategoryService
	Items      *service.ItemService
	Summary    *service.SummaryService
	Translator *Translator
	// OwnerID is the only Telegram user served. Zero serves everyone.
	OwnerID int64
	Log     *zap.Logger
}

var ErrNoOwner = errors.New("owner chat is not configured")

// Bot aggregates Telegram API with services.
type Bot struct {
	api        Sender
	categories *service.CategoryService
	items      *service.ItemService
	summary    *service.SummaryService
	tr         *Translator
	ownerID    int64
	log        *zap.Logger

	categoryView listView[model.Category]

	chats map[int64]*chatState
	mu    sync.Mutex
}

func New(api Sender, deps Deps) *Bot {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	b := &Bot{
		api:        api,
		categories: deps.Categories,
		items:      deps.Items,
		summary:    deps.Summary,
		tr:         deps.Translator,
		ownerID:    deps.OwnerID,
		log:        log.Named("bot"),
		chats:      make(map[int64]*chatState),
	}
	b.categoryView = listView[model.Category]{
		scope: scopeCategory,
		id:    func(c model.Category) string { return c.ID },
		line: func(_ int, c model.Category) string {
			return fmt.Sprintf("%s %s", color.Swatch(c.Color), escape(c.Name))
		},
		button: func(c model.Category) string { return "📂 " + shortTitle(c.Name, 24) },
		actions: []rowButton{
			{Action: actionOpen},
			{Action: actionRename, Text: b.tr.T("btnRename")},
			{Action: actionDelete, Text: b.tr.T("btnDelete")},
		},
	}
	return b
}

// itemView shades the rows of cat from its colour down to a darker tone.
func (b *Bot) itemView(cat model.Category, count int) listView[model.Item] {
	return listView[model.Item]{
		scope: scopeItem,
		id:    func(it model.Item) string { return it.ID },
		line: func(i int, it model.Item) string {
			return fmt.Sprintf("%s %s %s", color.Swatch(color.RowShade(cat.Color, i, count)), checkMark(it.Done), escape(it.Title))
		},
		button: func(it model.Item) string { return checkMark(it.Done) + " " + shortTitle(it.Title, 24) },
		actions: []rowButton{
			{Action: actionToggle},
			{Action: actionRename, Text: b.tr.T("btnRename")},
			{Action: actionDelete, Text: b.tr.T("btnDelete")},
		},
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context, poller Poller) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := poller.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		poller.StopReceivingUpdates()
	}()

	return b.Serve(ctx, updates)
}

// Serve handles updates until the channel is closed or ctx is done.
func (b *Bot) Serve(ctx context.Context, updates <-chan tgbotapi.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.HandleUpdate(ctx, update); err != nil {
				b.log.Warn("handle update", zap.Int("update", update.UpdateID), zap.Error(err))
			}
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return nil
		}
		return b.handleMessage(ctx, update.Message)
	}
	return nil
}

func (b *Bot) allowed(userID int64) bool {
	return b.ownerID == 0 || userID == b.ownerID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	chatID := msg.Chat.ID

	if !b.allowed(msg.From.ID) {
		b.log.Warn("message from stranger", zap.Int64("user", msg.From.ID))
		return b.sendText(chatID, b.tr.T("notOwner"))
	}

	if msg.IsCommand() {
		b.log.Info("command", zap.Int64("user", msg.From.ID), zap.String("command", msg.Command()))
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	if st := b.state(chatID); st.stage != stageNone {
		return b.handleConversation(ctx, chatID, st, msg.Text)
	}

	return b.sendText(chatID, b.tr.T("unknownInput"))
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.sendText(chatID, b.tr.T("welcome")+"\n\n"+b.tr.T("help"))
	case "help":
		return b.sendText(chatID, b.tr.T("help"))
	case "categories":
		b.update(chatID, func(st *chatState) { st.categoryID, st.query = "", "" })
		return b.sendCategories(ctx, chatID, 0)
	case "newcategory":
		if args == "" {
			return b.prompt(chatID, stageCategoryName, "", b.tr.T("askCategoryName"))
		}
		return b.addCategory(ctx, chatID, args)
	case "items":
		return b.sendItems(ctx, chatID, 0)
	case "add":
		return b.startAddItem(ctx, chatID, args)
	case "search":
		return b.search(ctx, chatID, args)
	case "clear":
		b.update(chatID, func(st *chatState) { st.query = "" })
		return b.sendItems(ctx, chatID, 0)
	case "summary":
		return b.sendSummary(ctx, chatID)
	case "cancel":
		if b.state(chatID).stage == stageNone {
			return b.sendText(chatID, b.tr.T("nothingToCancel"))
		}
		b.clearStage(chatID)
		return b.sendText(chatID, b.tr.T("cancelled"))
	default:
		return b.sendText(chatID, b.tr.T("unknownInput"))
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	chatID := msg.Chat.ID
	switch strings.TrimSpace(msg.Text) {
	case b.tr.T("menuCategories"):
		b.clearStage(chatID)
		b.update(chatID, func(st *chatState) { st.categoryID, st.query = "", "" })
		return true, b.sendCategories(ctx, chatID, 0)
	case b.tr.T("menuItems"):
		b.clearStage(chatID)
		return true, b.sendItems(ctx, chatID, 0)
	case b.tr.T("menuAddItem"):
		return true, b.startAddItem(ctx, chatID, "")
	case b.tr.T("menuHelp"):
		return true, b.sendText(chatID, b.tr.T("help"))
	}
	return false, nil
}

func (b *Bot) handleConversation(ctx context.Context, chatID int64, st chatState, text string) error {
	switch st.stage {
	case stageCategoryName:
		return b.addCategory(ctx, chatID, text)
	case stageItemTitle:
		return b.addItem(ctx, chatID, st.categoryID, text)
	case stageCategoryRename:
		if err := b.categories.RenameCategory(ctx, st.target, text); err != nil {
			return b.failStage(chatID, err)
		}
		b.clearStage(chatID)
		if err := b.sendText(chatID, b.tr.T("categoryRenamed")); err != nil {
			return err
		}
		return b.sendCategories(ctx, chatID, 0)
	case stageItemRename:
		if err := b.items.RenameItem(ctx, st.target, text); err != nil {
			return b.failStage(chatID, err)
		}
		b.clearStage(chatID)
		if err := b.sendText(chatID, b.tr.T("itemRenamed")); err != nil {
			return err
		}
		return b.sendItems(ctx, chatID, 0)
	}
	return nil
}

// failStage reports err. Invalid input keeps the prompt open for another try.
func (b *Bot) failStage(chatID int64, err error) error {
	if !errors.Is(err, model.ErrValidation) {
		b.clearStage(chatID)
	}
	return b.sendText(chatID, b.tr.Error(err))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	if !b.allowed(cb.From.ID) {
		return b.answer(cb.ID, b.tr.T("notOwner"))
	}

	scope, action, id, ok := parseCallback(cb.Data)
	if !ok {
		return b.answer(cb.ID, "")
	}
	b.log.Debug("callback", zap.String("scope", scope), zap.String("action", action), zap.String("id", id))

	switch scope + ":" + action {
	case scopeCategory + ":" + actionOpen:
		b.update(chatID, func(st *chatState) {
			st.categoryID, st.query = id, ""
			st.stage, st.target = stageNone, ""
		})
		if err := b.answer(cb.ID, ""); err != nil {
			b.log.Warn("callback ack", zap.Error(err))
		}
		return b.sendItems(ctx, chatID, 0)

	case scopeCategory + ":" + actionRename:
		cat, err := b.categories.GetCategory(ctx, id)
		if err != nil {
			return b.answerAndRefreshCategories(ctx, cb.ID, chatID, messageID, b.tr.Error(err))
		}
		if err := b.answer(cb.ID, ""); err != nil {
			b.log.Warn("callback ack", zap.Error(err))
		}
		return b.prompt(chatID, stageCategoryRename, id, b.tr.T("askCategoryRename", map[string]any{"Name": escape(cat.Name)}))

	case scopeCategory + ":" + actionDelete:
		text := b.tr.T("categoryDeleted")
		if err := b.categories.DeleteCategory(ctx, id); err != nil {
			text = b.tr.Error(err)
		} else {
			b.update(chatID, func(st *chatState) {
				if st.categoryID == id {
					st.categoryID, st.query = "", ""
				}
				if st.target == id {
					st.stage, st.target = stageNone, ""
				}
			})
		}
		return b.answerAndRefreshCategories(ctx, cb.ID, chatID, messageID, text)

	case scopeItem + ":" + actionToggle:
		text := ""
		if _, err := b.items.ToggleDone(ctx, id); err != nil {
			text = b.tr.Error(err)
		}
		return b.answerAndRefreshItems(ctx, cb.ID, chatID, messageID, text)

	case scopeItem + ":" + actionRename:
		item, err := b.items.GetItem(ctx, id)
		if err != nil {
			return b.answerAndRefreshItems(ctx, cb.ID, chatID, messageID, b.tr.Error(err))
		}
		if err := b.answer(cb.ID, ""); err != nil {
			b.log.Warn("callback ack", zap.Error(err))
		}
		return b.prompt(chatID, stageItemRename, id, b.tr.T("askItemRename", map[string]any{"Title": escape(item.Title)}))

	case scopeItem + ":" + actionDelete:
		text := b.tr.T("itemDeleted")
		if err := b.items.DeleteItem(ctx, id); err != nil {
			text = b.tr.Error(err)
		}
		return b.answerAndRefreshItems(ctx, cb.ID, chatID, messageID, text)

	default:
		return b.answer(cb.ID, "")
	}
}

func (b *Bot) answerAndRefreshCategories(ctx context.Context, callbackID string, chatID int64, messageID int, text string) error {
	if err := b.answer(callbackID, text); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}
	return b.sendCategories(ctx, chatID, messageID)
}

func (b *Bot) answerAndRefreshItems(ctx context.Context, callbackID string, chatID int64, messageID int, text string) error {
	if err := b.answer(callbackID, text); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}
	return b.sendItems(ctx, chatID, messageID)
}

var trailingColor = regexp.MustCompile(`^(.*?)\s*(#[0-9A-Fa-f]{6})$`)

// parseCategoryInput splits "Groceries #F5D76E" into name and colour.
func parseCategoryInput(text string) service.CategoryInput {
	text = strings.TrimSpace(text)
	if m := trailingColor.FindStringSubmatch(text); m != nil {
		return service.CategoryInput{Name: m[1], Color: m[2]}
	}
	return service.CategoryInput{Name: text}
}

func (b *Bot) addCategory(ctx context.Context, chatID int64, text string) error {
	cat, err := b.categories.AddCategory(ctx, parseCategoryInput(text))
	if err != nil {
		return b.failStage(chatID, err)
	}
	b.clearStage(chatID)
	if err := b.sendText(chatID, b.tr.T("categoryAdded", map[string]any{"Name": escape(cat.Name)})); err != nil {
		return err
	}
	return b.sendCategories(ctx, chatID, 0)
}

func (b *Bot) startAddItem(ctx context.Context, chatID int64, title string) error {
	categoryID := b.state(chatID).categoryID
	if categoryID == "" {
		return b.sendText(chatID, b.tr.T("noCategorySelected"))
	}
	if title != "" {
		return b.addItem(ctx, chatID, categoryID, title)
	}
	cat, err := b.categories.GetCategory(ctx, categoryID)
	if err != nil {
		return b.dropSelection(chatID, err)
	}
	return b.prompt(chatID, stageItemTitle, categoryID, b.tr.T("askItemTitle", map[string]any{"Category": escape(cat.Name)}))
}

func (b *Bot) addItem(ctx context.Context, chatID int64, categoryID, title string) error {
	item, err := b.items.AddItem(ctx, categoryID, title)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			b.clearStage(chatID)
			return b.dropSelection(chatID, err)
		}
		return b.failStage(chatID, err)
	}
	b.clearStage(chatID)
	if err := b.sendText(chatID, b.tr.T("itemAdded", map[string]any{"Title": escape(item.Title)})); err != nil {
		return err
	}
	return b.sendItems(ctx, chatID, 0)
}

func (b *Bot) search(ctx context.Context, chatID int64, query string) error {
	categoryID := b.state(chatID).categoryID
	if categoryID == "" {
		return b.sendText(chatID, b.tr.T("noCategorySelected"))
	}
	if _, err := b.items.SearchItems(ctx, categoryID, query); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return b.dropSelection(chatID, err)
		}
		return b.sendText(chatID, b.tr.Error(err))
	}
	b.update(chatID, func(st *chatState) { st.query = query })
	return b.sendItems(ctx, chatID, 0)
}

// dropSelection forgets an open category that no longer exists.
func (b *Bot) dropSelection(chatID int64, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		b.update(chatID, func(st *chatState) { st.categoryID, st.query = "", "" })
	}
	return b.sendText(chatID, b.tr.Error(err))
}

// sendCategories shows the category list, editing messageID in place when set.
func (b *Bot) sendCategories(ctx context.Context, chatID int64, messageID int) error {
	categories, err := b.categories.ListCategories(ctx)
	if err != nil {
		return b.sendText(chatID, b.tr.Error(err))
	}
	text, markup := b.categoryView.render(b.tr.T("categoriesTitle"), categories, b.tr.T("categoriesEmpty"))
	return b.showList(chatID, messageID, text, markup)
}

// sendItems shows the open category's items, filtered by the active query.
func (b *Bot) sendItems(ctx context.Context, chatID int64, messageID int) error {
	st := b.state(chatID)
	if st.categoryID == "" {
		return b.sendText(chatID, b.tr.T("noCategorySelected"))
	}

	cat, err := b.categories.GetCategory(ctx, st.categoryID)
	if err != nil {
		return b.dropSelection(chatID, err)
	}

	var (
		items  []model.Item
		header string
		empty  string
	)
	if st.query != "" {
		items, err = b.items.SearchItems(ctx, cat.ID, st.query)
		header = b.tr.T("searchTitle", map[string]any{"Category": escape(cat.Name), "Query": escape(st.query)})
		empty = b.tr.T("searchEmpty")
	} else {
		items, err = b.items.ListItems(ctx, cat.ID)
		header = b.tr.T("itemsTitle", map[string]any{"Category": escape(cat.Name), "Swatch": color.Swatch(cat.Color)})
		empty = b.tr.T("itemsEmpty")
	}
	if err != nil {
		return b.dropSelection(chatID, err)
	}

	text, markup := b.itemView(*cat, len(items)).render(header, items, empty)
	return b.showList(chatID, messageID, text, markup)
}

func (b *Bot) sendSummary(ctx context.Context, chatID int64) error {
	text, err := b.summaryText(ctx)
	if err != nil {
		return b.sendText(chatID, b.tr.Error(err))
	}
	return b.sendText(chatID, text)
}

// SendSummary delivers the open-items digest to the owner.
func (b *Bot) SendSummary(ctx context.Context) error {
	if b.ownerID == 0 {
		return ErrNoOwner
	}
	text, err := b.summaryText(ctx)
	if err != nil {
		return err
	}
	return b.sendText(b.ownerID, text)
}

func (b *Bot) summaryText(ctx context.Context) (string, error) {
	digest, err := b.summary.Pending(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(b.tr.T("summaryTitle"))
	sb.WriteString("\n\n")
	if len(digest) == 0 {
		sb.WriteString(b.tr.T("summaryEmpty"))
	}
	for _, entry := range digest {
		sb.WriteString(b.tr.T("summaryCategory", map[string]any{
			"Swatch":  color.Swatch(entry.Category.Color),
			"Name":    escape(entry.Category.Name),
			"Pending": len(entry.Pending),
			"Total":   entry.Total,
		}))
		sb.WriteByte('\n')
		for _, item := range entry.Pending {
			sb.WriteString("   ▫️ ")
			sb.WriteString(escape(item.Title))
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String()), nil
}

func (b *Bot) prompt(chatID int64, stage conversationStage, target, text string) error {
	b.update(chatID, func(st *chatState) { st.stage, st.target = stage, target })
	return b.sendText(chatID, text)
}

func (b *Bot) showList(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
		edit.ParseMode = tgbotapi.ModeHTML
		_, err := b.api.Request(edit)
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = b.mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) answer(callbackID, text string) error {
	_, err := b.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (b *Bot) state(chatID int64) chatState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.chats[chatID]; ok {
		return *st
	}
	return chatState{}
}

func (b *Bot) update(chatID int64, fn func(*chatState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.chats[chatID]
	if !ok {
		st = &chatState{}
		b.chats[chatID] = st
	}
	fn(st)
}

func (b *Bot) clearStage(chatID int64) {
	b.update(chatID, func(st *chatState) { st.stage, st.target = stageNone, "" })
}

func (b *Bot) mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(b.tr.T("menuCategories")),
			tgbotapi.NewKeyboardButton(b.tr.T("menuItems")),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(b.tr.T("menuAddItem")),
			tgbotapi.NewKeyboardButton(b.tr.T("menuHelp")),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func checkMark(done bool) string {
	if done {
		return "✅"
	}
	return "▫️"
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
