package entities

import "time"

// User is a business account. Every other entity is scoped to one User.
type User struct {
	ID                 int       `json:"id"`
	Username           string    `json:"username"`
	PasswordHash       string    `json:"-"`
	Role               string    `json:"role"`
	IsActive           bool      `json:"is_active"`
	MonthlyLimit       int       `json:"monthly_limit"` // AI analyses per month (0 = unlimited)
	AutoReplyDMs       bool      `json:"auto_reply_dms"`
	AutoReplyComments  bool      `json:"auto_reply_comments"`
	InstagramAccountID string    `json:"instagram_account_id"`
	InstagramToken     string    `json:"-"`
	TelegramChatID     int64     `json:"telegram_chat_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// AutoReplyEnabled returns the per-channel auto-reply toggle.
func (u *User) AutoReplyEnabled(channel Channel) bool {
	if channel == ChannelComment {
		return u.AutoReplyComments
	}
	return u.AutoReplyDMs
}

func (u *User) InstagramAccount() InstagramAccount {
	return InstagramAccount{ID: u.InstagramAccountID, AccessToken: u.InstagramToken}
}

// InstagramAccount is the credential pair the Graph client needs.
type InstagramAccount struct {
	ID          string
	AccessToken string
}

// Settings is the owner-editable part of a User.
type Settings struct {
	AutoReplyDMs       *bool   `json:"auto_reply_dms"`
	AutoReplyComments  *bool   `json:"auto_reply_comments"`
	InstagramAccountID *string `json:"instagram_account_id"`
	InstagramToken     *string `json:"instagram_token"`
	TelegramChatID     *int64  `json:"telegram_chat_id"`
}

// UsageStatus mirrors the dashboard quota widget.
type UsageStatus struct {
	Month            string `json:"month"`
	MonthlyLimit     int    `json:"monthly_limit"`
	Used             int    `json:"used"`
	MonthlyRemaining int    `json:"monthly_remaining"`
	MonthlyPercent   int    `json:"monthly_percent"`
}
