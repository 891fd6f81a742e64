package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot/models"
	outreachDomain "github.com/reshetovitsme/keyword-monitor/internal/modules/outreach/domain"
	subscriberDomain "github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/domain"
)

// Callback data understood by the subscriber UI.
const (
	callbackMainMenu      = "menu_main"
	callbackMonitorMenu   = "menu_monitor"
	callbackNotifyMenu    = "menu_notify"
	callbackAutoDMMenu    = "menu_autodm"
	callbackTogglePause   = "notify_toggle_pause"
	callbackToggleSimple  = "notify_toggle_simple"
	callbackToggleAI      = "setting_toggle_ai"
	callbackFuzzyLimit    = "setting_fuzzy_limit"
	callbackSetLimit      = "set_limit:"
	callbackBan           = "ban:"
	callbackBlacklist     = "blacklist_view"
	callbackUnban         = "blacklist_unban:"
	callbackDMStart       = "dm_start"
	callbackDMStop        = "dm_stop"
	callbackDMAccountList = "dm_acc_list"
)

const helpText = `<b>📖 使用说明</b>

/addkw 词1 词2 - 添加监听关键词
/keywords - 查看关键词
/delkw &lt;ID&gt; - 删除关键词
/addfilter 词1 词2 - 添加屏蔽词
/filters - 查看屏蔽词
/delfilter &lt;ID&gt; - 删除屏蔽词
/target &lt;群组ID&gt; | off - 设置通知转发目标
/dmtext &lt;内容&gt; - 设置自动私信模板
/help - 显示本帮助`

// reply is what a command or callback renders back to the user.
type reply struct {
	text   string
	markup *models.InlineKeyboardMarkup
	toast  string
}

func button(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

func keyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func backRow(data string) []models.InlineKeyboardButton {
	return []models.InlineKeyboardButton{button("⬅️ 返回", data)}
}

func onOff(enabled bool) string {
	if enabled {
		return "✅ 开启"
	}
	return "❌ 关闭"
}

func limitLabel(limit int) string {
	if limit <= 0 {
		return "不限"
	}
	return fmt.Sprintf("%d 字", limit)
}

func mainMenuView() reply {
	return reply{
		text: "👋 <b>欢迎使用关键词监听机器人</b>\n\n" +
			"添加关键词后，群组里出现关键词的消息会第一时间推送给你。\n\n" +
			"发送 /help 查看全部命令。",
		markup: keyboard(
			[]models.InlineKeyboardButton{button("🎯 监听设置", callbackMonitorMenu), button("🔔 通知设置", callbackNotifyMenu)},
			[]models.InlineKeyboardButton{button("🤖 自动私信", callbackAutoDMMenu), button("🚫 黑名单", callbackBlacklist)},
		),
	}
}

func monitorMenuView(sub *subscriberDomain.Subscriber, keywords, filters int) reply {
	var b strings.Builder
	b.WriteString("<b>🎯 监听设置</b>\n\n")
	fmt.Fprintf(&b, "关键词：%d 个\n", keywords)
	fmt.Fprintf(&b, "屏蔽词：%d 个\n", filters)
	fmt.Fprintf(&b, "AI 过滤：%s\n", onOff(sub.AIFilterEnabled))
	fmt.Fprintf(&b, "字数限制：%s", limitLabel(sub.FuzzyLimit))

	return reply{
		text: b.String(),
		markup: keyboard(
			[]models.InlineKeyboardButton{button("🧠 AI 过滤", callbackToggleAI), button("📏 字数限制", callbackFuzzyLimit)},
			[]models.InlineKeyboardButton{button("🚫 黑名单", callbackBlacklist)},
			backRow(callbackMainMenu),
		),
	}
}

func notifyMenuView(sub *subscriberDomain.Subscriber) reply {
	target := "私聊"
	if sub.NotifyTargetID != nil {
		target = fmt.Sprintf("<code>%d</code>", *sub.NotifyTargetID)
		if sub.NotifyTargetName != nil && *sub.NotifyTargetName != "" {
			target = html.EscapeString(*sub.NotifyTargetName) + " " + target
		}
	}

	state := "▶️ 运行中"
	pauseText := "⏸ 暂停推送"
	if sub.IsPaused {
		state = "⏸ 已暂停"
		pauseText = "▶️ 恢复推送"
	}

	var b strings.Builder
	b.WriteString("<b>🔔 通知设置</b>\n\n")
	fmt.Fprintf(&b, "推送状态：%s\n", state)
	fmt.Fprintf(&b, "推送目标：%s\n", target)
	fmt.Fprintf(&b, "精简模式：%s\n\n", onOff(sub.SimpleMode))
	b.WriteString("使用 /target &lt;群组ID&gt; 转发到群组，/target off 恢复私聊。")

	return reply{
		text: b.String(),
		markup: keyboard(
			[]models.InlineKeyboardButton{button(pauseText, callbackTogglePause), button("📝 精简模式", callbackToggleSimple)},
			backRow(callbackMainMenu),
		),
	}
}

func fuzzyLimitView(current int) reply {
	row := make([]models.InlineKeyboardButton, 0, len(subscriberDomain.FuzzyLimitPresets))
	for _, preset := range subscriberDomain.FuzzyLimitPresets {
		label := limitLabel(preset)
		if preset == current {
			label = "✅ " + label
		}
		row = append(row, button(label, fmt.Sprintf("%s%d", callbackSetLimit, preset)))
	}
	return reply{
		text:   "<b>📏 字数限制</b>\n\n超过字数的消息不会推送给你。",
		markup: keyboard(row, backRow(callbackMonitorMenu)),
	}
}

func blacklistView(blocked []subscriberDomain.BlockedSender) reply {
	if len(blocked) == 0 {
		return reply{
			text:   "<b>🚫 黑名单</b>\n\n暂无拉黑用户。点击通知下方的「🔊 拉黑ID」即可拉黑发送者。",
			markup: keyboard(backRow(callbackMonitorMenu)),
		}
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(blocked)+1)
	for _, entry := range blocked {
		name := "未知用户"
		if entry.BlockedName != nil {
			name = *entry.BlockedName
		}
		rows = append(rows, []models.InlineKeyboardButton{
			button(fmt.Sprintf("✅ 解除 %s (%d)", name, entry.BlockedID), fmt.Sprintf("%s%d", callbackUnban, entry.ID)),
		})
	}
	rows = append(rows, backRow(callbackMonitorMenu))

	return reply{
		text:   fmt.Sprintf("<b>🚫 黑名单</b>\n\n共 %d 个用户，点击解除拉黑。", len(blocked)),
		markup: keyboard(rows...),
	}
}

func autoDMView(overview *outreachDomain.Overview) reply {
	content := "未设置"
	if overview.Content != "" {
		content = html.EscapeString(overview.Content)
	}

	toggle := button("▶️ 开启自动私信", callbackDMStart)
	if overview.AutoReply {
		toggle = button("⏹ 关闭自动私信", callbackDMStop)
	}

	var b strings.Builder
	b.WriteString("<b>🤖 自动私信</b>\n\n")
	fmt.Fprintf(&b, "状态：%s\n", onOff(overview.AutoReply))
	fmt.Fprintf(&b, "私信账号：%d 个\n", overview.AccountCount)
	fmt.Fprintf(&b, "私信模板：%s\n\n", content)
	b.WriteString("使用 /dmtext &lt;内容&gt; 设置模板。")

	return reply{
		text: b.String(),
		markup: keyboard(
			[]models.InlineKeyboardButton{toggle},
			[]models.InlineKeyboardButton{button("📱 账号列表", callbackDMAccountList)},
			backRow(callbackMainMenu),
		),
	}
}

func accountsView(accounts []outreachDomain.Account) reply {
	if len(accounts) == 0 {
		return reply{
			text:   "<b>📱 账号列表</b>\n\n暂无私信账号。",
			markup: keyboard(backRow(callbackAutoDMMenu)),
		}
	}

	var b strings.Builder
	b.WriteString("<b>📱 账号列表</b>\n\n")
	for i, account := range accounts {
		fmt.Fprintf(&b, "%d. %s | %s | 今日 %d/%d\n",
			i+1, html.EscapeString(account.Label()), account.Status, account.DailySent, account.DailyLimit)
	}
	return reply{
		text:   strings.TrimRight(b.String(), "\n"),
		markup: keyboard(backRow(callbackAutoDMMenu)),
	}
}

func keywordListView(keywords []subscriberDomain.Keyword) reply {
	if len(keywords) == 0 {
		return reply{text: "暂无关键词，使用 /addkw 添加。"}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>🎯 关键词（%d）</b>\n\n", len(keywords))
	for _, kw := range keywords {
		fmt.Fprintf(&b, "<code>%d</code>. %s\n", kw.ID, html.EscapeString(kw.Word))
	}
	b.WriteString("\n删除：/delkw &lt;ID&gt;")
	return reply{text: b.String()}
}

func filterListView(words []subscriberDomain.FilterWord) reply {
	if len(words) == 0 {
		return reply{text: "暂无屏蔽词，使用 /addfilter 添加。"}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>🙈 屏蔽词（%d）</b>\n\n", len(words))
	for _, word := range words {
		fmt.Fprintf(&b, "<code>%d</code>. %s\n", word.ID, html.EscapeString(word.Word))
	}
	b.WriteString("\n删除：/delfilter &lt;ID&gt;")
	return reply{text: b.String()}
}
