package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/domain"
)

const (
	locateButtonText = "🧐 消息定位 🧐"
	closeButtonText  = "❌ 关闭"
	banButtonText    = "🔊 拉黑ID"

	CallbackClose     = "menu_monitor"
	CallbackBanPrefix = "ban:"

	unknownSender = "未知"
	noUsername    = "无"
)

// RenderText formats the HTML notification body shared by every subscriber of a hit.
func RenderText(keyword string, msg *domain.Message, history string, capturedAt time.Time) string {
	name := unknownSender
	username := noUsername
	if msg.Sender != nil {
		if display := msg.Sender.DisplayName(); display != "" {
			name = display
		}
		if msg.Sender.Username != "" {
			username = "@" + msg.Sender.Username
		}
	}

	title := msg.ChatTitle
	if title == "" {
		title = domain.DefaultChatTitle
	}

	link := msg.Link()
	if link == "" {
		link = domain.NoLinkPlaceholder
	}

	var b strings.Builder
	b.WriteString("<b>监听关键词</b>\n")
	fmt.Fprintf(&b, "🎯 <b>命中关键词：</b>#%s\n\n", html.EscapeString(keyword))
	fmt.Fprintf(&b, "用户ID：<code>%d</code>\n", msg.SenderID())
	fmt.Fprintf(&b, "用户昵称：%s\n", html.EscapeString(name))
	fmt.Fprintf(&b, "用户名：%s\n", html.EscapeString(username))
	fmt.Fprintf(&b, "来自于：<a href='%s'>%s</a>\n", html.EscapeString(link), html.EscapeString(title))
	fmt.Fprintf(&b, "用户历史搜索：%s\n", history)
	fmt.Fprintf(&b, "捕捉时间：%s\n", capturedAt.In(domain.DisplayZone).Format(time.DateTime))
	fmt.Fprintf(&b, "发送内容：%s", html.EscapeString(Preview(msg.Content())))
	return b.String()
}

// Preview returns the first PreviewLimit characters of text.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= domain.PreviewLimit {
		return text
	}
	return string(runes[:domain.PreviewLimit])
}

// BuildKeyboard lays out ad rows (unless simple), a locate button when the message
// has a public link, and the close/ban row.
func BuildKeyboard(ads [][]domain.Button, simple bool, link string, senderID int64) [][]domain.Button {
	rows := make([][]domain.Button, 0, len(ads)+2)
	if !simple {
		for _, row := range ads {
			rows = append(rows, append([]domain.Button(nil), row...))
		}
	}
	if link != "" {
		rows = append(rows, []domain.Button{{Text: locateButtonText, URL: link}})
	}
	rows = append(rows, []domain.Button{
		{Text: closeButtonText, CallbackData: CallbackClose},
		{Text: banButtonText, CallbackData: fmt.Sprintf("%s%d", CallbackBanPrefix, senderID)},
	})
	return rows
}
