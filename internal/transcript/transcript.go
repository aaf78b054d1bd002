package transcript

import (
	"fmt"
	"time"
)

// Entry is one chat line in an archived transcript
type Entry struct {
	Sender        string    `json:"sender"`
	SenderName    string    `json:"senderName"`
	Content       string    `json:"content"`
	IsFromCreator bool      `json:"isFromCreator"`
	Timestamp     time.Time `json:"timestamp"`
}

// Transcript is the archived chat of one ended meeting
type Transcript struct {
	MeetingID string    `json:"meetingId"`
	Title     string    `json:"title"`
	Creator   string    `json:"creator"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Entries   []Entry   `json:"entries"`
}

// ObjectName is the S3 key a meeting's transcript is stored under
func ObjectName(meetingID string) string {
	return fmt.Sprintf("transcripts/%s.json", meetingID)
}
