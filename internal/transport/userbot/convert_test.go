package userbot

import (
	"testing"

	"github.com/gotd/td/tg"
)

func testEntities() tg.Entities {
	return tg.Entities{
		Users: map[int64]*tg.User{
			7: {ID: 7, FirstName: "Li", LastName: "Lei", Username: "lilei"},
		},
		Chats: map[int64]*tg.Chat{
			300: {ID: 300, Title: "Small Group"},
		},
		Channels: map[int64]*tg.Channel{
			400: {ID: 400, Title: "Go 中文", Username: "golang_cn"},
		},
	}
}

func TestConvertMessage_Channel(t *testing.T) {
	msg := &tg.Message{
		ID:      12,
		Message: "招聘 golang",
		Date:    1700000000,
		PeerID:  &tg.PeerChannel{ChannelID: 400},
	}
	msg.SetFromID(&tg.PeerUser{UserID: 7})

	out, ok := ConvertMessage(msg, testEntities())
	if !ok {
		t.Fatal("Expected message to convert")
	}

	if out.ChatID != -1000000000400 {
		t.Errorf("Expected bot API chat id, got %d", out.ChatID)
	}
	if out.ChatTitle != "Go 中文" || out.ChatUsername != "golang_cn" {
		t.Errorf("Unexpected chat info: %s/%s", out.ChatTitle, out.ChatUsername)
	}
	if out.Link() != "https://t.me/golang_cn/12" {
		t.Errorf("Unexpected link: %s", out.Link())
	}
	if out.Sender == nil || out.Sender.Username != "lilei" || out.Sender.DisplayName() != "Li Lei" {
		t.Errorf("Unexpected sender: %+v", out.Sender)
	}
	if out.Date.Unix() != 1700000000 {
		t.Errorf("Unexpected date: %v", out.Date)
	}
}

func TestConvertMessage_BasicGroupHasNoLink(t *testing.T) {
	msg := &tg.Message{ID: 5, Message: "hi", PeerID: &tg.PeerChat{ChatID: 300}}
	msg.SetFromID(&tg.PeerUser{UserID: 99})

	out, ok := ConvertMessage(msg, testEntities())
	if !ok {
		t.Fatal("Expected message to convert")
	}
	if out.ChatID != -300 || out.ChatTitle != "Small Group" {
		t.Errorf("Unexpected chat: %d %s", out.ChatID, out.ChatTitle)
	}
	if out.Link() != "" {
		t.Errorf("Expected no link, got %s", out.Link())
	}
	if out.SenderID() != 99 || out.SenderUsername() != "" {
		t.Errorf("Expected unknown sender 99 without username, got %+v", out.Sender)
	}
}

func TestConvertMessage_SkipsPrivateChat(t *testing.T) {
	msg := &tg.Message{ID: 1, Message: "hello foo", PeerID: &tg.PeerUser{UserID: 7}}
	msg.SetFromID(&tg.PeerUser{UserID: 7})

	if out, ok := ConvertMessage(msg, testEntities()); ok {
		t.Errorf("Expected private message to be skipped, got %+v", out)
	}
}

func TestConvertMessage_ChannelPostHasNoSender(t *testing.T) {
	msg := &tg.Message{ID: 3, Message: "post", PeerID: &tg.PeerChannel{ChannelID: 400}}

	out, ok := ConvertMessage(msg, testEntities())
	if !ok {
		t.Fatal("Expected message to convert")
	}
	if out.Sender != nil {
		t.Errorf("Expected no sender for channel post, got %+v", out.Sender)
	}
}

func TestConvertMessage_SkipsOutgoing(t *testing.T) {
	msg := &tg.Message{ID: 1, Out: true, Message: "mine", PeerID: &tg.PeerChat{ChatID: 300}}

	if _, ok := ConvertMessage(msg, testEntities()); ok {
		t.Error("Expected outgoing message to be skipped")
	}
	if _, ok := ConvertMessage(nil, testEntities()); ok {
		t.Error("Expected nil message to be skipped")
	}
}
