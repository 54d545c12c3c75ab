package Notifications

import (
	"context"
	"fmt"
	"log"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"github.com/wenjyue84/MakanManager-sub001/Models"
)

// Global Firebase client
var firebaseClient *messaging.Client
var ctx = context.Background()

// InitFirebase sets up the FCM client (call once at startup). Skipped when no
// credentials file is configured; the dispatcher then degrades to a no-op.
func InitFirebase(credentialsFile string) error {
	opt := option.WithCredentialsFile(credentialsFile)

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("error initializing Firebase app: %v", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("error getting Messaging client: %v", err)
	}

	firebaseClient = client
	log.Println("Firebase initialized successfully")
	return nil
}

// Dispatcher translates engine transition events into push notifications for
// the people involved with the task. It is the notifier port implementation;
// the engine itself never formats or delivers messages.
type Dispatcher struct {
	DB *gorm.DB
}

func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{DB: db}
}

func (d *Dispatcher) TaskEvent(event string, task *Models.Task, actorID uint) {
	if firebaseClient == nil {
		return
	}

	recipients := recipientsFor(event, task, actorID)
	if len(recipients) == 0 {
		return
	}

	tokens, err := Models.TokensForUsers(d.DB, recipients)
	if err != nil {
		log.Printf("Failed to load device tokens for task %d: %v", task.ID, err)
		return
	}

	title, body := describe(event, task)
	for _, token := range tokens {
		message := &messaging.Message{
			Token: token.Value,
			Data: map[string]string{
				"task_id": strconv.Itoa(int(task.ID)),
				"event":   event,
				"station": task.Station,
			},
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Android: &messaging.AndroidConfig{
				Notification: &messaging.AndroidNotification{
					Icon:  "task_event_icon",
					Sound: "default",
				},
				Priority: "high",
			},
		}
		if _, err := firebaseClient.Send(ctx, message); err != nil {
			log.Printf("Error sending %s notification for task %d: %v", event, task.ID, err)
		}
	}
}

// recipientsFor picks who cares about an event, excluding the actor who
// triggered it.
func recipientsFor(event string, task *Models.Task, actorID uint) []uint {
	var interested []uint
	if task.AssignerID != 0 {
		interested = append(interested, task.AssignerID)
	}
	if task.AssigneeID != nil {
		interested = append(interested, *task.AssigneeID)
	}

	var recipients []uint
	seen := make(map[uint]bool)
	for _, id := range interested {
		if id == actorID || seen[id] {
			continue
		}
		seen[id] = true
		recipients = append(recipients, id)
	}
	return recipients
}

func describe(event string, task *Models.Task) (string, string) {
	switch event {
	case "claimed":
		return "Task claimed", fmt.Sprintf("%q has been picked up", task.Title)
	case "submitted":
		return "Ready for review", fmt.Sprintf("%q is waiting for approval", task.Title)
	case "approved":
		points := 0
		if task.FinalPoints != nil {
			points = *task.FinalPoints
		}
		return "Task approved", fmt.Sprintf("%q settled for %d points", task.Title, points)
	case "rejected":
		return "Task sent back", fmt.Sprintf("%q needs rework: %s", task.Title, task.RejectionReason)
	case "held":
		return "Task on hold", fmt.Sprintf("%q has been paused", task.Title)
	case "resumed":
		return "Task resumed", fmt.Sprintf("%q is back in progress", task.Title)
	}
	return "Task update", fmt.Sprintf("%q was updated", task.Title)
}
