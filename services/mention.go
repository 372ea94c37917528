package services

import (
	"regexp"
	"strings"

	"github.com/akinalp/huddle/models"
)

// mentionPattern, @ ve ardından kelime karakterleri veya nokta (ör: @john.doe).
// @ metnin başında veya kelime dışı bir karakterden sonra olmalıdır: "ask alice@bob" mention değildir.
var mentionPattern = regexp.MustCompile(`(?:^|[^\w])@([\w.]+)`)

// ResolveMentions, metindeki @token'ları katılımcılarla eşleştirir.
//
// Eşleşme büyük/küçük harf duyarsızdır; username boşsa email'in @ öncesi
// kullanılır. Sonuç ilk görülme sırasındadır, tekrar ve yazar içermez.
// Sadece verilen katılımcılar eşleşebilir; sonradan katılımcı listesi
// değişse bile eski mesajların mention'ları değişmez.
func ResolveMentions(text, authorID string, participants []models.User) []string {
	if !strings.Contains(text, "@") {
		return nil
	}

	byHandle := make(map[string]string, len(participants))
	for i := range participants {
		handle := strings.ToLower(participants[i].MentionHandle())
		if handle == "" {
			continue
		}
		if _, taken := byHandle[handle]; !taken {
			byHandle[handle] = participants[i].ID
		}
	}

	var (
		ids  []string
		seen = make(map[string]struct{})
	)
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		// Cümle sonu noktası token'a dahil değildir: "hi @bob." → bob
		token := strings.ToLower(strings.TrimRight(m[1], "."))
		if token == "" {
			continue
		}
		id, ok := byHandle[token]
		if !ok || id == authorID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// participantUsers, konuşma katılımcılarının kullanıcı kayıtlarını döner.
func participantUsers(conv *models.Conversation) []models.User {
	users := make([]models.User, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		if p.User != nil {
			users = append(users, *p.User)
		} else {
			users = append(users, models.User{ID: p.UserID})
		}
	}
	return users
}
