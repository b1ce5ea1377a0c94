package notifier

import (
	"context"
	"fmt"
	"net/http"

	"cowin-slots/model"
	"cowin-slots/utils"
)

// Ntfy pushes matches to an ntfy.sh topic so they reach a phone.
type Ntfy struct {
	client *http.Client
	server string
	topic  string
}

func (n *Ntfy) Notify(ctx context.Context, matches []model.Match) {
	if len(matches) == 0 {
		return
	}
	err := utils.SendNotification(ctx, n.client, n.server, &model.Notification{
		Topic:    n.topic,
		Title:    fmt.Sprintf("%v %s", utils.EmojiTada, Title),
		Tags:     []string{"syringe"},
		Message:  Summary(matches),
		Priority: 4,
	})
	if err != nil {
		logFailure("ntfy", err)
	}
}
