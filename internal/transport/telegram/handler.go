package telegram

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	outreachService "github.com/reshetovitsme/keyword-monitor/internal/modules/outreach/service"
	subscriberService "github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/service"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/redisbus"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/config"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
)

type commandFunc func(ctx context.Context, user *models.User, args string) reply

type command struct {
	name        string
	description string
	match       bot.MatchType
	run         commandFunc
}

// Handler handles Telegram bot interactions
type Handler struct {
	cfg         *config.Config
	subscribers *subscriberService.Service
	outreach    *outreachService.Service
	stats       redisbus.Stats
	now         func() time.Time
}

// New creates a new Telegram handler
func New(cfg *config.Config, subscribers *subscriberService.Service, outreach *outreachService.Service, stats redisbus.Stats) *Handler {
	return &Handler{
		cfg:         cfg,
		subscribers: subscribers,
		outreach:    outreach,
		stats:       stats,
		now:         time.Now,
	}
}

func (h *Handler) commands() []command {
	return []command{
		{"/start", "打开主菜单", bot.MatchTypeExact, h.cmdStart},
		{"/help", "使用说明", bot.MatchTypeExact, h.cmdHelp},
		{"/addkw", "添加关键词", bot.MatchTypePrefix, h.cmdAddKeywords},
		{"/keywords", "查看关键词", bot.MatchTypeExact, h.cmdListKeywords},
		{"/delkw", "删除关键词", bot.MatchTypePrefix, h.cmdDeleteKeyword},
		{"/addfilter", "添加屏蔽词", bot.MatchTypePrefix, h.cmdAddFilters},
		{"/filters", "查看屏蔽词", bot.MatchTypeExact, h.cmdListFilters},
		{"/delfilter", "删除屏蔽词", bot.MatchTypePrefix, h.cmdDeleteFilter},
		{"/target", "设置通知目标", bot.MatchTypePrefix, h.cmdTarget},
		{"/dmtext", "设置私信模板", bot.MatchTypePrefix, h.cmdTemplate},
		{"/status", "运行状态", bot.MatchTypeExact, h.cmdStatus},
	}
}

// RegisterCommands registers bot commands and the callback dispatcher
func (h *Handler) RegisterCommands(b *bot.Bot) {
	for _, cmd := range h.commands() {
		b.RegisterHandler(bot.HandlerTypeMessageText, cmd.name, cmd.match, h.wrapCommand(cmd.run))
	}
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, h.handleCallback)
}

// BotCommands lists the public commands for the bot menu.
func (h *Handler) BotCommands() []models.BotCommand {
	out := make([]models.BotCommand, 0, len(h.commands()))
	for _, cmd := range h.commands() {
		if cmd.name == "/status" {
			continue
		}
		out = append(out, models.BotCommand{Command: strings.TrimPrefix(cmd.name, "/"), Description: cmd.description})
	}
	return out
}

func (h *Handler) wrapCommand(run commandFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}

		var r reply
		if _, err := h.subscribers.Register(ctx, msg.From.ID, msg.From.Username); err != nil {
			r = h.failure("register", msg.From.ID, err)
		} else {
			r = run(ctx, msg.From, commandArgs(msg.Text))
		}

		params := &bot.SendMessageParams{
			ChatID:    msg.Chat.ID,
			Text:      r.text,
			ParseMode: models.ParseModeHTML,
		}
		if r.markup != nil {
			params.ReplyMarkup = r.markup
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			slog.Error("Failed to send reply", "chat_id", msg.Chat.ID, "error", err)
		}
	}
}

func (h *Handler) handleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}

	var r reply
	if _, err := h.subscribers.Register(ctx, query.From.ID, query.From.Username); err != nil {
		r = h.failure("register", query.From.ID, err)
		r.toast, r.text = r.text, ""
	} else {
		r = h.callback(ctx, &query.From, query.Data)
	}

	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
		Text:            r.toast,
	}); err != nil {
		slog.Debug("Failed to answer callback", "error", err)
	}
	if r.text == "" {
		return
	}

	if origin := query.Message.Message; origin != nil {
		params := &bot.EditMessageTextParams{
			ChatID:    origin.Chat.ID,
			MessageID: origin.ID,
			Text:      r.text,
			ParseMode: models.ParseModeHTML,
		}
		if r.markup != nil {
			params.ReplyMarkup = r.markup
		}
		if _, err := b.EditMessageText(ctx, params); err == nil {
			return
		}
	}

	params := &bot.SendMessageParams{
		ChatID:    query.From.ID,
		Text:      r.text,
		ParseMode: models.ParseModeHTML,
	}
	if r.markup != nil {
		params.ReplyMarkup = r.markup
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		slog.Error("Failed to send callback reply", "user_id", query.From.ID, "error", err)
	}
}

func (h *Handler) callback(ctx context.Context, user *models.User, data string) reply {
	uid := user.ID

	switch {
	case data == callbackMainMenu:
		return mainMenuView()
	case data == callbackMonitorMenu:
		return h.monitorMenu(ctx, uid)
	case data == callbackNotifyMenu:
		return h.notifyMenu(ctx, uid)
	case data == callbackAutoDMMenu:
		return h.autoDMMenu(ctx, uid)
	case data == callbackTogglePause:
		paused, err := h.subscribers.TogglePause(ctx, uid)
		if err != nil {
			return h.failure(data, uid, err)
		}
		if paused {
			return withToast(h.notifyMenu(ctx, uid), "已暂停推送")
		}
		return withToast(h.notifyMenu(ctx, uid), "已恢复推送")
	case data == callbackToggleSimple:
		if _, err := h.subscribers.ToggleSimpleMode(ctx, uid); err != nil {
			return h.failure(data, uid, err)
		}
		return withToast(h.notifyMenu(ctx, uid), "已切换精简模式")
	case data == callbackToggleAI:
		if _, err := h.subscribers.ToggleAIFilter(ctx, uid); err != nil {
			return h.failure(data, uid, err)
		}
		return withToast(h.monitorMenu(ctx, uid), "已切换 AI 过滤")
	case data == callbackFuzzyLimit:
		sub, err := h.subscribers.Get(ctx, uid)
		if err != nil {
			return h.failure(data, uid, err)
		}
		return fuzzyLimitView(sub.FuzzyLimit)
	case strings.HasPrefix(data, callbackSetLimit):
		limit, err := strconv.Atoi(strings.TrimPrefix(data, callbackSetLimit))
		if err != nil {
			return reply{toast: "无效的字数限制"}
		}
		if err := h.subscribers.SetFuzzyLimit(ctx, uid, limit); err != nil {
			return h.failure(data, uid, err)
		}
		return withToast(h.monitorMenu(ctx, uid), "字数限制已更新")
	case strings.HasPrefix(data, callbackBan):
		senderID, err := strconv.ParseInt(strings.TrimPrefix(data, callbackBan), 10, 64)
		if err != nil || senderID == 0 {
			return reply{toast: "无法拉黑该用户"}
		}
		if err := h.subscribers.BlockSender(ctx, uid, senderID, ""); err != nil {
			return h.failure(data, uid, err)
		}
		return reply{toast: "已拉黑，该用户的消息将不再推送"}
	case data == callbackBlacklist:
		return h.blacklist(ctx, uid)
	case strings.HasPrefix(data, callbackUnban):
		blockID, err := strconv.ParseInt(strings.TrimPrefix(data, callbackUnban), 10, 64)
		if err != nil {
			return reply{toast: "无效的记录"}
		}
		if err := h.subscribers.UnblockSender(ctx, uid, blockID); err != nil {
			return h.failure(data, uid, err)
		}
		return withToast(h.blacklist(ctx, uid), "已解除拉黑")
	case data == callbackDMStart, data == callbackDMStop:
		if err := h.outreach.SetAutoReply(ctx, uid, data == callbackDMStart); err != nil {
			return h.failure(data, uid, err)
		}
		return h.autoDMMenu(ctx, uid)
	case data == callbackDMAccountList:
		accounts, err := h.outreach.ListAccounts(ctx, uid)
		if err != nil {
			return h.failure(data, uid, err)
		}
		return accountsView(accounts)
	default:
		return reply{toast: "未知操作"}
	}
}

func (h *Handler) monitorMenu(ctx context.Context, uid int64) reply {
	sub, err := h.subscribers.Get(ctx, uid)
	if err != nil {
		return h.failure("monitor_menu", uid, err)
	}
	keywords, err := h.subscribers.ListKeywords(ctx, uid)
	if err != nil {
		return h.failure("monitor_menu", uid, err)
	}
	filters, err := h.subscribers.ListFilterWords(ctx, uid)
	if err != nil {
		return h.failure("monitor_menu", uid, err)
	}
	return monitorMenuView(sub, len(keywords), len(filters))
}

func (h *Handler) notifyMenu(ctx context.Context, uid int64) reply {
	sub, err := h.subscribers.Get(ctx, uid)
	if err != nil {
		return h.failure("notify_menu", uid, err)
	}
	return notifyMenuView(sub)
}

func (h *Handler) autoDMMenu(ctx context.Context, uid int64) reply {
	overview, err := h.outreach.Overview(ctx, uid)
	if err != nil {
		return h.failure("autodm_menu", uid, err)
	}
	return autoDMView(overview)
}

func (h *Handler) blacklist(ctx context.Context, uid int64) reply {
	blocked, err := h.subscribers.ListBlocked(ctx, uid)
	if err != nil {
		return h.failure("blacklist", uid, err)
	}
	return blacklistView(blocked)
}

func (h *Handler) cmdStart(ctx context.Context, user *models.User, args string) reply {
	return mainMenuView()
}

func (h *Handler) cmdHelp(ctx context.Context, user *models.User, args string) reply {
	return reply{text: helpText}
}

func (h *Handler) cmdAddKeywords(ctx context.Context, user *models.User, args string) reply {
	added, err := h.subscribers.AddKeywords(ctx, user.ID, args)
	if err != nil {
		if stderrors.Is(err, errors.ErrInvalidArgument) {
			return reply{text: "用法：/addkw 词1 词2\n示例：/addkw 招聘 golang"}
		}
		return h.failure("addkw", user.ID, err)
	}
	return reply{text: fmt.Sprintf("✅ 已添加 %d 个关键词", added)}
}

func (h *Handler) cmdListKeywords(ctx context.Context, user *models.User, args string) reply {
	keywords, err := h.subscribers.ListKeywords(ctx, user.ID)
	if err != nil {
		return h.failure("keywords", user.ID, err)
	}
	return keywordListView(keywords)
}

func (h *Handler) cmdDeleteKeyword(ctx context.Context, user *models.User, args string) reply {
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return reply{text: "用法：/delkw &lt;ID&gt;，ID 可通过 /keywords 查看"}
	}
	if err := h.subscribers.DeleteKeyword(ctx, user.ID, id); err != nil {
		return h.failure("delkw", user.ID, err)
	}
	return reply{text: "🗑 关键词已删除"}
}

func (h *Handler) cmdAddFilters(ctx context.Context, user *models.User, args string) reply {
	added, err := h.subscribers.AddFilterWords(ctx, user.ID, args)
	if err != nil {
		if stderrors.Is(err, errors.ErrInvalidArgument) {
			return reply{text: "用法：/addfilter 词1 词2\n包含屏蔽词的消息不会推送给你"}
		}
		return h.failure("addfilter", user.ID, err)
	}
	return reply{text: fmt.Sprintf("✅ 已添加 %d 个屏蔽词", added)}
}

func (h *Handler) cmdListFilters(ctx context.Context, user *models.User, args string) reply {
	words, err := h.subscribers.ListFilterWords(ctx, user.ID)
	if err != nil {
		return h.failure("filters", user.ID, err)
	}
	return filterListView(words)
}

func (h *Handler) cmdDeleteFilter(ctx context.Context, user *models.User, args string) reply {
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return reply{text: "用法：/delfilter &lt;ID&gt;，ID 可通过 /filters 查看"}
	}
	if err := h.subscribers.DeleteFilterWord(ctx, user.ID, id); err != nil {
		return h.failure("delfilter", user.ID, err)
	}
	return reply{text: "🗑 屏蔽词已删除"}
}

func (h *Handler) cmdTarget(ctx context.Context, user *models.User, args string) reply {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return reply{text: "用法：/target &lt;群组ID&gt; [名称] 或 /target off"}
	}

	if strings.EqualFold(fields[0], "off") {
		if err := h.subscribers.SetNotifyTarget(ctx, user.ID, nil, ""); err != nil {
			return h.failure("target", user.ID, err)
		}
		return reply{text: "✅ 通知将发送到私聊"}
	}

	targetID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || targetID == 0 {
		return reply{text: "❌ 群组ID必须是数字，例如 -1001234567890"}
	}
	name := strings.Join(fields[1:], " ")
	if err := h.subscribers.SetNotifyTarget(ctx, user.ID, &targetID, name); err != nil {
		return h.failure("target", user.ID, err)
	}
	return reply{text: fmt.Sprintf("✅ 通知将发送到 <code>%d</code>，请确保机器人已加入该群组", targetID)}
}

func (h *Handler) cmdTemplate(ctx context.Context, user *models.User, args string) reply {
	if err := h.outreach.SetTemplate(ctx, user.ID, args); err != nil {
		if stderrors.Is(err, errors.ErrInvalidArgument) {
			return reply{text: "用法：/dmtext 你好，看到你在找…"}
		}
		return h.failure("dmtext", user.ID, err)
	}
	return reply{text: "✅ 私信模板已更新"}
}

func (h *Handler) cmdStatus(ctx context.Context, user *models.User, args string) reply {
	if !h.cfg.IsAdmin(user.ID) {
		return reply{text: "❌ Unauthorized"}
	}

	day := h.now().UTC()
	counts, err := h.stats.Snapshot(ctx, day)
	if err != nil {
		return h.failure("status", user.ID, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>📊 运行状态</b> %s (UTC)\n\n", day.Format(time.DateOnly))
	for _, metric := range redisbus.Metrics {
		fmt.Fprintf(&b, "%s: %d\n", metric, counts[metric])
	}
	return reply{text: strings.TrimRight(b.String(), "\n")}
}

func (h *Handler) failure(action string, uid int64, err error) reply {
	if stderrors.Is(err, errors.ErrSubscriberNotFound) {
		return reply{text: "请先发送 /start 完成注册"}
	}
	slog.Error("Bot action failed", "action", action, "user_id", uid, "error", err)
	return reply{text: "❌ 操作失败，请稍后再试"}
}

func withToast(r reply, toast string) reply {
	r.toast = toast
	return r
}

// commandArgs strips the leading /command (and optional @botname) from text.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexFunc(text, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' }); idx >= 0 {
		return strings.TrimSpace(text[idx+1:])
	}
	return ""
}
