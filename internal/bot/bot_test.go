package bot

import (
	"context"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"todoey/internal/model"
	"todoey/internal/repository"
	"todoey/internal/service"
)

const (
	ownerID    int64 = 1001
	strangerID int64 = 2002
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// drain returns everything sent since the last call.
func (f *fakeSender) drain() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sent
	f.sent = nil
	return out
}

type harness struct {
	t     *testing.T
	api   *fakeSender
	bot   *Bot
	tr    *Translator
	store *repository.MemoryStore
	ctx   context.Context
	cats  *service.CategoryService
	items *service.ItemService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tr, err := NewTranslator(LanguageEn)
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	cats := service.NewCategoryService(store.Categories(), zap.NewNop())
	items := service.NewItemService(store.Items(), zap.NewNop())
	api := &fakeSender{}
	b := New(api, Deps{
		Categories: cats,
		Items:      items,
		Summary:    service.NewSummaryService(store.Categories(), store.Items()),
		Translator: tr,
		OwnerID:    ownerID,
		Log:        zap.NewNop(),
	})
	return &harness{t: t, api: api, bot: b, tr: tr, store: store, ctx: context.Background(), cats: cats, items: items}
}

func message(from int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.SplitN(text, " ", 2)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callback(from int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{
			MessageID: messageID,
			Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
		},
		Data: data,
	}}
}

func (h *harness) say(text string) []tgbotapi.Chattable {
	h.t.Helper()
	require.NoError(h.t, h.bot.HandleUpdate(h.ctx, message(ownerID, text)))
	return h.api.drain()
}

func (h *harness) tap(messageID int, data string) []tgbotapi.Chattable {
	h.t.Helper()
	require.NoError(h.t, h.bot.HandleUpdate(h.ctx, callback(ownerID, messageID, data)))
	return h.api.drain()
}

func texts(sent []tgbotapi.Chattable) []string {
	var out []string
	for _, c := range sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func lastKeyboard(t *testing.T, sent []tgbotapi.Chattable) tgbotapi.InlineKeyboardMarkup {
	t.Helper()
	for i := len(sent) - 1; i >= 0; i-- {
		switch m := sent[i].(type) {
		case tgbotapi.MessageConfig:
			if kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
				return kb
			}
		case tgbotapi.EditMessageTextConfig:
			if m.ReplyMarkup != nil {
				return *m.ReplyMarkup
			}
		}
	}
	t.Fatal("no inline keyboard sent")
	return tgbotapi.InlineKeyboardMarkup{}
}

func (h *harness) addCategory(name string) model.Category {
	h.t.Helper()
	cat, err := h.cats.AddCategory(h.ctx, service.CategoryInput{Name: name})
	require.NoError(h.t, err)
	return *cat
}

func (h *harness) addItem(categoryID, title string) model.Item {
	h.t.Helper()
	item, err := h.items.AddItem(h.ctx, categoryID, title)
	require.NoError(h.t, err)
	return *item
}

func TestNewCategoryCommand(t *testing.T) {
	h := newHarness(t)

	sent := h.say("/newcategory Groceries #f5d76e")
	out := texts(sent)
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "Groceries")
	assert.Contains(t, out[1], "Groceries")

	cats, err := h.cats.ListCategories(h.ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "#F5D76E", cats[0].Color)

	kb := lastKeyboard(t, sent)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 3)
	assert.Equal(t, "c:open:"+cats[0].ID, *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "c:del:"+cats[0].ID, *kb.InlineKeyboard[0][2].CallbackData)
}

func TestNewCategoryPrompt(t *testing.T) {
	h := newHarness(t)

	out := texts(h.say("/newcategory"))
	require.Equal(t, []string{h.tr.T("askCategoryName")}, out)

	out = texts(h.say("   "))
	assert.Equal(t, []string{h.tr.T(model.MsgCategoryNameBlank)}, out)

	out = texts(h.say("Home"))
	require.Len(t, out, 2)

	out = texts(h.say("/cancel"))
	assert.Equal(t, []string{h.tr.T("nothingToCancel")}, out)
}

func TestItemsScreen(t *testing.T) {
	h := newHarness(t)
	home := h.addCategory("Home")
	h.addItem(home.ID, "Buy milk")
	h.addItem(home.ID, "buy Bread")

	out := texts(h.say("/items"))
	assert.Equal(t, []string{h.tr.T("noCategorySelected")}, out)

	sent := h.tap(7, "c:open:"+home.ID)
	out = texts(sent)
	require.Len(t, out, 1)
	bread := strings.Index(out[0], "buy Bread")
	milk := strings.Index(out[0], "Buy milk")
	require.True(t, bread >= 0 && milk >= 0)
	assert.Less(t, bread, milk)
	_, acked := sent[0].(tgbotapi.CallbackConfig)
	assert.True(t, acked)
}

func TestToggleEditsListInPlace(t *testing.T) {
	h := newHarness(t)
	home := h.addCategory("Home")
	milk := h.addItem(home.ID, "Buy milk")
	h.tap(3, "c:open:"+home.ID)

	sent := h.tap(9, "i:tog:"+milk.ID)
	require.Len(t, sent, 2)
	edit, ok := sent[1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 9, edit.MessageID)
	assert.Contains(t, edit.Text, "✅ Buy milk")

	got, err := h.items.GetItem(h.ctx, milk.ID)
	require.NoError(t, err)
	assert.True(t, got.Done)

	h.tap(9, "i:tog:"+milk.ID)
	got, err = h.items.GetItem(h.ctx, milk.ID)
	require.NoError(t, err)
	assert.False(t, got.Done)
}

func TestAddItemConversation(t *testing.T) {
	h := newHarness(t)
	home := h.addCategory("Home")

	out := texts(h.say("/add Buy milk"))
	assert.Equal(t, []string{h.tr.T("noCategorySelected")}, out)

	h.tap(3, "c:open:"+home.ID)
	out = texts(h.say("/add"))
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Home")

	out = texts(h.say(" "))
	assert.Equal(t, []string{h.tr.T(model.MsgItemTitleBlank)}, out)

	out = texts(h.say("Call mom"))
	require.Len(t, out, 2)
	assert.Contains(t, out[1], "Call mom")

	items, err := h.items.ListItems(h.ctx, home.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	out = texts(h.say("/add Buy milk"))
	require.Len(t, out, 2)
	items, err = h.items.ListItems(h.ctx, home.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSearchAndClear(t *testing.T) {
	h := newHarness(t)
	home := h.addCategory("Home")
	h.addItem(home.ID, "Buy milk")
	h.addItem(home.ID, "Call mom")
	h.tap(3, "c:open:"+home.ID)

	out := texts(h.say("/search"))
	assert.Equal(t, []string{h.tr.T(model.MsgSearchQueryBlank)}, out)

	out = texts(h.say("/search MILK"))
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Buy milk")
	assert.NotContains(t, out[0], "Call mom")

	out = texts(h.say("/search xyz"))
	require.Len(t, out, 1)
	assert.Contains(t, out[0], h.tr.T("searchEmpty"))

	out = texts(h.say("/clear"))
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Buy milk")
	assert.Contains(t, out[0], "Call mom")
}

func TestRenameItemConversation(t *testing.T) {
	h := newHarness(t)
	home := h.addCategory("Home")
	milk := h.addItem(home.ID, "Buy milk")
	h.tap(3, "c:open:"+home.ID)

	out := texts(h.tap(5, "i:ren:"+milk.ID))
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Buy milk")

	out = texts(h.say("Buy oat milk"))
	require.Len(t, out, 2)
	assert.Equal(t, h.tr.T("itemRenamed"), out[0])

	got, err := h.items.GetItem(h.ctx, milk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", got.Title)
}

func TestDeleteOpenCategoryDropsSelection(t *testing.T) {
	h := newHarness(t)
	home := h.addCategory("Home")
	h.addCategory("Work")
	milk := h.addItem(home.ID, "Buy milk")
	h.tap(3, "c:open:"+home.ID)

	sent := h.tap(4, "c:del:"+home.ID)
	require.Len(t, sent, 2)
	ack, ok := sent[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, h.tr.T("categoryDeleted"), ack.Text)
	edit, ok := sent[1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.NotContains(t, edit.Text, "Home")
	assert.Contains(t, edit.Text, "Work")

	_, err := h.items.GetItem(h.ctx, milk.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	out := texts(h.say("/items"))
	assert.Equal(t, []string{h.tr.T("noCategorySelected")}, out)

	// A stale button for the deleted category reports it is gone.
	sent = h.tap(4, "c:del:"+home.ID)
	ack, ok = sent[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, h.tr.T("errNotFound"), ack.Text)
}

func TestRenameStaleCategoryIsNotFound(t *testing.T) {
	h := newHarness(t)
	home := h.addCategory("Home")
	h.tap(3, "c:ren:"+home.ID)
	require.NoError(t, h.cats.DeleteCategory(h.ctx, home.ID))

	out := texts(h.say("House"))
	assert.Equal(t, []string{h.tr.T("errNotFound")}, out)

	out = texts(h.say("House"))
	assert.Equal(t, []string{h.tr.T("unknownInput")}, out)
}

func TestStrangersAreRefused(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.bot.HandleUpdate(h.ctx, message(strangerID, "/newcategory Secret")))
	out := texts(h.api.drain())
	assert.Equal(t, []string{h.tr.T("notOwner")}, out)

	cats, err := h.cats.ListCategories(h.ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestSummary(t *testing.T) {
	h := newHarness(t)
	home := h.addCategory("Home")
	h.addItem(home.ID, "Buy milk")
	done := h.addItem(home.ID, "Call mom")
	_, err := h.items.ToggleDone(h.ctx, done.ID)
	require.NoError(t, err)

	require.NoError(t, h.bot.SendSummary(h.ctx))
	sent := h.api.drain()
	require.Len(t, sent, 1)
	msg := sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, ownerID, msg.ChatID)
	assert.Contains(t, msg.Text, "Buy milk")
	assert.NotContains(t, msg.Text, "Call mom")
	assert.Contains(t, msg.Text, "1 of 2 open")

	noOwner := New(h.api, Deps{
		Categories: h.cats,
		Items:      h.items,
		Summary:    service.NewSummaryService(h.store.Categories(), h.store.Items()),
		Translator: h.tr,
	})
	assert.ErrorIs(t, noOwner.SendSummary(h.ctx), ErrNoOwner)
}

func TestMenuAliases(t *testing.T) {
	h := newHarness(t)
	h.addCategory("Home")

	out := texts(h.say(h.tr.T("menuCategories")))
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Home")

	out = texts(h.say("hello"))
	assert.Equal(t, []string{h.tr.T("unknownInput")}, out)
}

func TestParseCategoryInput(t *testing.T) {
	assert.Equal(t, service.CategoryInput{Name: "Groceries", Color: "#F5D76E"}, parseCategoryInput(" Groceries #F5D76E "))
	assert.Equal(t, service.CategoryInput{Name: "Top #1"}, parseCategoryInput("Top #1"))
	assert.Equal(t, service.CategoryInput{Name: "", Color: "#89C4F4"}, parseCategoryInput("#89C4F4"))
}

func TestParseCallback(t *testing.T) {
	scope, action, id, ok := parseCallback("i:tog:abc")
	require.True(t, ok)
	assert.Equal(t, []string{"i", "tog", "abc"}, []string{scope, action, id})

	_, _, _, ok = parseCallback("i:tog:")
	assert.False(t, ok)
	_, _, _, ok = parseCallback("garbage")
	assert.False(t, ok)
}
