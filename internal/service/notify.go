package service

import "github.com/AdamBeresnev/charter-pool/internal/live"

// Notifier receives bracket changes after they are committed.
type Notifier interface {
	Publish(msg live.Message)
}

func notify(n Notifier, msg live.Message) {
	if n != nil {
		n.Publish(msg)
	}
}
