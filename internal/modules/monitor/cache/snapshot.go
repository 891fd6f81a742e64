package cache

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/cloudflare/ahocorasick"
	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/domain"
	subscriberDomain "github.com/reshetovitsme/keyword-monitor/internal/modules/subscriber/domain"
	"github.com/samber/lo"
)

const adsPerRow = 2

// Snapshot is an immutable view of keyword subscriptions built by one refresh.
// All reads are safe for concurrent use.
type Snapshot struct {
	keywords    []string
	subscribers map[string][]domain.SubscriberConfig
	filterWords map[int64][]string
	blocked     map[int64]map[int64]struct{}
	ads         [][]domain.Button
	matcher     *ahocorasick.Matcher
	loadedAt    time.Time
}

// BuildSnapshot turns repository rows into a snapshot. Keyword order follows rows;
// a subscriber appears at most once per keyword, first row wins.
func BuildSnapshot(
	rows []subscriberDomain.KeywordSubscription,
	filters []subscriberDomain.SubscriberFilterWord,
	blocks []subscriberDomain.SubscriberBlock,
	ads []subscriberDomain.AdSetting,
	now time.Time,
) *Snapshot {
	s := &Snapshot{
		subscribers: make(map[string][]domain.SubscriberConfig),
		filterWords: make(map[int64][]string),
		blocked:     make(map[int64]map[int64]struct{}),
		loadedAt:    now,
	}

	for _, row := range rows {
		if row.Word == "" || row.IsBanned || (row.ExpireAt != nil && !row.ExpireAt.After(now)) {
			continue
		}

		configs, known := s.subscribers[row.Word]
		if !known {
			s.keywords = append(s.keywords, row.Word)
		}
		if slices.ContainsFunc(configs, func(c domain.SubscriberConfig) bool { return c.UID == row.TgID }) {
			continue
		}

		s.subscribers[row.Word] = append(configs, domain.SubscriberConfig{
			UID:      row.TgID,
			Paused:   row.IsPaused,
			Simple:   row.SimpleMode,
			Target:   row.NotifyTargetID,
			Limit:    row.FuzzyLimit,
			AIFilter: row.AIFilterEnabled,
		})
	}

	for _, f := range filters {
		if f.Word == "" {
			continue
		}
		s.filterWords[f.TgID] = append(s.filterWords[f.TgID], f.Word)
	}

	for _, b := range blocks {
		if s.blocked[b.TgID] == nil {
			s.blocked[b.TgID] = make(map[int64]struct{})
		}
		s.blocked[b.TgID][b.BlockedID] = struct{}{}
	}

	s.ads = buildAdRows(ads)

	if len(s.keywords) > 0 {
		s.matcher = ahocorasick.NewStringMatcher(s.keywords)
	}

	return s
}

func buildAdRows(settings []subscriberDomain.AdSetting) [][]domain.Button {
	ads := lo.Filter(settings, func(a subscriberDomain.AdSetting, _ int) bool {
		return a.IsAd() && a.Value != ""
	})
	slices.SortStableFunc(ads, func(a, b subscriberDomain.AdSetting) int {
		if c := cmp.Compare(a.Position(), b.Position()); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})

	buttons := lo.Map(ads, func(a subscriberDomain.AdSetting, _ int) domain.Button {
		return domain.Button{Text: a.ButtonText(), URL: a.Value}
	})
	return lo.Chunk(buttons, adsPerRow)
}

// Match returns the first keyword, in insertion order, contained in text.
// Only one keyword wins per message.
func (s *Snapshot) Match(text string) (string, []domain.SubscriberConfig, bool) {
	if s == nil || s.matcher == nil || text == "" {
		return "", nil, false
	}

	hits := s.matcher.MatchThreadSafe([]byte(text))
	if len(hits) == 0 {
		return "", nil, false
	}

	keyword := s.keywords[slices.Min(hits)]
	return keyword, s.subscribers[keyword], true
}

// Keywords returns the keywords in match priority order.
func (s *Snapshot) Keywords() []string {
	return slices.Clone(s.keywords)
}

func (s *Snapshot) Subscribers(keyword string) []domain.SubscriberConfig {
	return s.subscribers[keyword]
}

// HasFilterWord reports whether text contains any of uid's blocklist words.
func (s *Snapshot) HasFilterWord(uid int64, text string) bool {
	return slices.ContainsFunc(s.filterWords[uid], func(word string) bool {
		return strings.Contains(text, word)
	})
}

// IsBlocked reports whether uid blocked senderID.
func (s *Snapshot) IsBlocked(uid, senderID int64) bool {
	if senderID == 0 {
		return false
	}
	_, ok := s.blocked[uid][senderID]
	return ok
}

// Ads returns the promotional button rows. Callers must not modify them.
func (s *Snapshot) Ads() [][]domain.Button {
	return s.ads
}

func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// KeywordView is one keyword and its subscribers in match priority order.
type KeywordView struct {
	Word        string                    `json:"word"`
	Subscribers []domain.SubscriberConfig `json:"subscribers"`
}

// View is a serialisable copy of the snapshot contents.
type View struct {
	Keywords    []KeywordView      `json:"keywords"`
	FilterWords map[int64][]string `json:"filter_words"`
	Blocked     map[int64][]int64  `json:"blocked"`
	Ads         [][]domain.Button  `json:"ads"`
}

func (s *Snapshot) View() View {
	view := View{
		Keywords: lo.Map(s.keywords, func(word string, _ int) KeywordView {
			return KeywordView{Word: word, Subscribers: s.subscribers[word]}
		}),
		FilterWords: s.filterWords,
		Blocked:     make(map[int64][]int64, len(s.blocked)),
		Ads:         s.ads,
	}
	for uid, senders := range s.blocked {
		ids := lo.Keys(senders)
		slices.Sort(ids)
		view.Blocked[uid] = ids
	}
	return view
}
