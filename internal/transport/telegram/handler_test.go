package telegram

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	outreachRepo "github.com/reshetovitsme/keyword-monitor/internal/modules/outreach/repository"
	outreachService "github.com/reshetovitsme/keyword-monitor/internal/modules/outreach/service"
	subscriberRepo "github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/repository"
	subscriberService "github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/service"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/database/dbtest"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/redisbus"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/workerpool"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/config"
)

type nopSender struct{}

func (nopSender) SendDirect(ctx context.Context, credential, username, text string) error {
	return nil
}

type nopScheduler struct{}

func (nopScheduler) TrySubmit(task workerpool.Task) error { return nil }

type countingBus struct {
	calls int
}

func (b *countingBus) Publish(ctx context.Context) error {
	b.calls++
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *countingBus, *redisbus.MemoryStats) {
	t.Helper()
	db := dbtest.SQLite(t)
	bus := &countingBus{}
	stats := redisbus.NewMemoryStats()

	subscribers := subscriberService.New(subscriberRepo.New(db), bus)
	outreach := outreachService.New(outreachRepo.New(db), nopSender{}, nopScheduler{}, stats, time.Second)
	cfg := &config.Config{AdminIDs: []int64{1}}

	h := New(cfg, subscribers, outreach, stats)
	if _, err := subscribers.Register(context.Background(), 100, "alice"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return h, bus, stats
}

var alice = &models.User{ID: 100, Username: "alice"}

func TestCommandArgs(t *testing.T) {
	cases := map[string]string{
		"/addkw go rust":      "go rust",
		"/addkw@my_bot  go  ": "go",
		"/keywords":           "",
		"/dmtext hi\nthere":   "hi\nthere",
	}
	for in, want := range cases {
		if got := commandArgs(in); got != want {
			t.Errorf("commandArgs(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestHandler_KeywordCommands(t *testing.T) {
	h, bus, _ := newTestHandler(t)
	ctx := context.Background()

	r := h.cmdAddKeywords(ctx, alice, "golang, rust golang")
	if r.text != "✅ 已添加 2 个关键词" {
		t.Errorf("Unexpected add reply: %s", r.text)
	}
	if bus.calls != 1 {
		t.Errorf("Expected refresh signal after add, got %d", bus.calls)
	}

	r = h.cmdAddKeywords(ctx, alice, "  ")
	if !strings.HasPrefix(r.text, "用法：/addkw") {
		t.Errorf("Expected usage for empty input, got %s", r.text)
	}

	r = h.cmdListKeywords(ctx, alice, "")
	if !strings.Contains(r.text, "golang") || !strings.Contains(r.text, "rust") {
		t.Errorf("Expected both keywords listed, got %s", r.text)
	}

	keywords, err := h.subscribers.ListKeywords(ctx, alice.ID)
	if err != nil || len(keywords) != 2 {
		t.Fatalf("Expected 2 keywords, got %v, %v", keywords, err)
	}

	r = h.cmdDeleteKeyword(ctx, alice, "abc")
	if !strings.HasPrefix(r.text, "用法：/delkw") {
		t.Errorf("Expected usage for bad id, got %s", r.text)
	}

	r = h.cmdDeleteKeyword(ctx, alice, formatID(keywords[0].ID))
	if r.text != "🗑 关键词已删除" {
		t.Errorf("Unexpected delete reply: %s", r.text)
	}
	keywords, _ = h.subscribers.ListKeywords(ctx, alice.ID)
	if len(keywords) != 1 {
		t.Errorf("Expected 1 keyword after delete, got %d", len(keywords))
	}
}

func TestHandler_FilterCommands(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()

	if r := h.cmdListFilters(ctx, alice, ""); !strings.Contains(r.text, "暂无屏蔽词") {
		t.Errorf("Expected empty filter list, got %s", r.text)
	}
	if r := h.cmdAddFilters(ctx, alice, "广告 招聘"); r.text != "✅ 已添加 2 个屏蔽词" {
		t.Errorf("Unexpected add reply: %s", r.text)
	}
	if r := h.cmdListFilters(ctx, alice, ""); !strings.Contains(r.text, "广告") {
		t.Errorf("Expected filter listed, got %s", r.text)
	}
}

func TestHandler_TargetCommand(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()

	if r := h.cmdTarget(ctx, alice, "-100123 Team Chat"); !strings.Contains(r.text, "-100123") {
		t.Errorf("Unexpected target reply: %s", r.text)
	}
	sub, err := h.subscribers.Get(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.NotifyTargetID == nil || *sub.NotifyTargetID != -100123 {
		t.Errorf("Expected target stored, got %v", sub.NotifyTargetID)
	}
	if sub.NotifyTargetName == nil || *sub.NotifyTargetName != "Team Chat" {
		t.Errorf("Expected target name stored, got %v", sub.NotifyTargetName)
	}

	if r := h.cmdTarget(ctx, alice, "abc"); !strings.HasPrefix(r.text, "❌") {
		t.Errorf("Expected error for non-numeric target, got %s", r.text)
	}

	h.cmdTarget(ctx, alice, "off")
	sub, _ = h.subscribers.Get(ctx, alice.ID)
	if sub.NotifyTargetID != nil {
		t.Errorf("Expected target cleared, got %v", *sub.NotifyTargetID)
	}
}

func TestHandler_StatusRequiresAdmin(t *testing.T) {
	h, _, stats := newTestHandler(t)
	ctx := context.Background()
	stats.Incr(ctx, redisbus.MetricHits)

	if r := h.cmdStatus(ctx, alice, ""); r.text != "❌ Unauthorized" {
		t.Errorf("Expected unauthorized, got %s", r.text)
	}

	r := h.cmdStatus(ctx, &models.User{ID: 1}, "")
	if !strings.Contains(r.text, "hits: 1") {
		t.Errorf("Expected hit counter in status, got %s", r.text)
	}
}

func TestHandler_ToggleCallbacks(t *testing.T) {
	h, bus, _ := newTestHandler(t)
	ctx := context.Background()

	r := h.callback(ctx, alice, callbackTogglePause)
	if r.toast != "已暂停推送" || !strings.Contains(r.text, "已暂停") {
		t.Errorf("Unexpected pause reply: %+v", r)
	}
	r = h.callback(ctx, alice, callbackTogglePause)
	if r.toast != "已恢复推送" {
		t.Errorf("Unexpected resume toast: %s", r.toast)
	}

	h.callback(ctx, alice, callbackToggleAI)
	sub, _ := h.subscribers.Get(ctx, alice.ID)
	if !sub.AIFilterEnabled {
		t.Error("Expected AI filter enabled")
	}

	h.callback(ctx, alice, callbackToggleSimple)
	sub, _ = h.subscribers.Get(ctx, alice.ID)
	if !sub.SimpleMode {
		t.Error("Expected simple mode enabled")
	}

	if bus.calls != 4 {
		t.Errorf("Expected 4 refresh signals, got %d", bus.calls)
	}
}

func TestHandler_FuzzyLimitCallbacks(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()

	r := h.callback(ctx, alice, callbackFuzzyLimit)
	if r.markup == nil || len(r.markup.InlineKeyboard[0]) != 4 {
		t.Fatalf("Expected 4 preset buttons, got %+v", r.markup)
	}

	r = h.callback(ctx, alice, "set_limit:30")
	if r.toast != "字数限制已更新" {
		t.Errorf("Unexpected toast: %s", r.toast)
	}
	sub, _ := h.subscribers.Get(ctx, alice.ID)
	if sub.FuzzyLimit != 30 {
		t.Errorf("Expected limit 30, got %d", sub.FuzzyLimit)
	}

	r = h.callback(ctx, alice, "set_limit:7")
	if !strings.HasPrefix(r.text, "❌") {
		t.Errorf("Expected failure for non-preset limit, got %+v", r)
	}
}

func TestHandler_BanAndUnban(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()

	r := h.callback(ctx, alice, "ban:555")
	if r.text != "" || r.toast == "" {
		t.Errorf("Expected toast-only reply, got %+v", r)
	}
	if r := h.callback(ctx, alice, "ban:0"); r.toast != "无法拉黑该用户" {
		t.Errorf("Expected rejection of sender 0, got %+v", r)
	}

	blocked, err := h.subscribers.ListBlocked(ctx, alice.ID)
	if err != nil || len(blocked) != 1 || blocked[0].BlockedID != 555 {
		t.Fatalf("Expected sender 555 blocked, got %v, %v", blocked, err)
	}

	r = h.callback(ctx, alice, callbackBlacklist)
	if len(r.markup.InlineKeyboard) != 2 {
		t.Errorf("Expected unban row plus back row, got %d rows", len(r.markup.InlineKeyboard))
	}

	r = h.callback(ctx, alice, callbackUnban+formatID(blocked[0].ID))
	if r.toast != "已解除拉黑" {
		t.Errorf("Unexpected unban toast: %s", r.toast)
	}
	blocked, _ = h.subscribers.ListBlocked(ctx, alice.ID)
	if len(blocked) != 0 {
		t.Errorf("Expected empty blacklist, got %d", len(blocked))
	}
}

func TestHandler_AutoDM(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()

	if r := h.cmdTemplate(ctx, alice, ""); !strings.HasPrefix(r.text, "用法：/dmtext") {
		t.Errorf("Expected usage for empty template, got %s", r.text)
	}
	if r := h.cmdTemplate(ctx, alice, "你好 <b>"); r.text != "✅ 私信模板已更新" {
		t.Errorf("Unexpected template reply: %s", r.text)
	}

	r := h.callback(ctx, alice, callbackDMStart)
	if !strings.Contains(r.text, "你好 &lt;b&gt;") {
		t.Errorf("Expected escaped template in overview, got %s", r.text)
	}
	if r.markup.InlineKeyboard[0][0].CallbackData != callbackDMStop {
		t.Errorf("Expected stop button after enabling, got %+v", r.markup.InlineKeyboard[0])
	}

	r = h.callback(ctx, alice, callbackDMAccountList)
	if !strings.Contains(r.text, "暂无私信账号") {
		t.Errorf("Expected empty account list, got %s", r.text)
	}
}

func TestHandler_UnknownCallback(t *testing.T) {
	h, _, _ := newTestHandler(t)

	if r := h.callback(context.Background(), alice, "nope"); r.toast != "未知操作" || r.text != "" {
		t.Errorf("Unexpected reply: %+v", r)
	}
}

func TestHandler_BotCommandsHideStatus(t *testing.T) {
	h, _, _ := newTestHandler(t)

	for _, cmd := range h.BotCommands() {
		if cmd.Command == "status" {
			t.Error("Expected /status to be hidden from the command menu")
		}
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
