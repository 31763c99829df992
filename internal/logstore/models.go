package logstore

// Message represents one chat message row read from the log store.
// The pipeline treats rows as read-only except for the processed marker.
type Message struct {
	ID        string `db:"id"`
	Sender    string `db:"sender"`
	Content   string `db:"content"`
	ReplyJID  string `db:"jid"` // reply-target identifier; empty when no reply is possible
	Timestamp string `db:"timestamp"`
	ChatJID   string `db:"chat_jid"`
	IsFromMe  bool   `db:"is_from_me"`
}
