// Package realtime fans dismissal changes out to websocket subscribers
// grouped by typed topics.
package realtime

import "fmt"

// Topic is an audience-scoped broadcast channel.
type Topic interface {
	Key() string
	topic()
}

// OfficeTopic reaches the office staff of a school.
type OfficeTopic struct {
	SchoolID string
}

// Key implements Topic.
func (t OfficeTopic) Key() string { return fmt.Sprintf("school:%s:office", t.SchoolID) }

func (OfficeTopic) topic() {}

// TeacherTopic reaches the teachers of one homeroom.
type TeacherTopic struct {
	SchoolID   string
	HomeroomID string
}

// Key implements Topic.
func (t TeacherTopic) Key() string {
	return fmt.Sprintf("school:%s:teacher:%s", t.SchoolID, t.HomeroomID)
}

func (TeacherTopic) topic() {}

// ParentTopic reaches one guardian.
type ParentTopic struct {
	SchoolID   string
	GuardianID string
}

// Key implements Topic.
func (t ParentTopic) Key() string {
	return fmt.Sprintf("school:%s:parent:%s", t.SchoolID, t.GuardianID)
}

func (ParentTopic) topic() {}

// SchoolTopic reaches every subscriber of a school.
type SchoolTopic struct {
	SchoolID string
}

// Key implements Topic.
func (t SchoolTopic) Key() string { return fmt.Sprintf("school:%s", t.SchoolID) }

func (SchoolTopic) topic() {}
