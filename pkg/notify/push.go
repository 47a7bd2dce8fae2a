package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tripflow/tripflow/pkg/database"
	"github.com/tripflow/tripflow/pkg/tripdata"
	"google.golang.org/api/option"
)

// OperatorPushTarget maps an operator to the FCM token of their device.
type OperatorPushTarget struct {
	OperatorID string
	Token      string
}

type PushManager struct {
	FirebaseApp *firebase.App
}

func (m *PushManager) Setup() error {
	fireBaseAuthKey := os.Getenv("TRIPFLOW_FIREBASE_SERVICE_ACCOUNT")

	decodedKey, err := base64.StdEncoding.DecodeString(fireBaseAuthKey)
	if err != nil {
		return err
	}

	opts := []option.ClientOption{option.WithCredentialsJSON(decodedKey)}

	// Initialize firebase app
	app, err := firebase.NewApp(context.Background(), nil, opts...)

	if err != nil {
		return err
	}

	m.FirebaseApp = app

	return nil
}

// Targets returns every registered operator device.
func (m *PushManager) Targets(ctx context.Context) ([]OperatorPushTarget, error) {
	pushTargetsCollection := database.GetCollection("operator_push_targets")

	cursor, err := pushTargetsCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	var targets []OperatorPushTarget
	if err := cursor.All(ctx, &targets); err != nil {
		return nil, err
	}

	return targets, nil
}

// SendAdvisory pushes one panel message to one operator device.
func (m *PushManager) SendAdvisory(ctx context.Context, target OperatorPushTarget, message tripdata.TripPanelMessage) error {
	if target.Token == "" {
		return errors.New("push target has no token")
	}

	fcmClient, err := m.FirebaseApp.Messaging(ctx)
	if err != nil {
		return err
	}

	_, err = fcmClient.Send(ctx, &messaging.Message{
		Notification: &messaging.Notification{
			Title: "Trip advisory",
			Body:  message.Text,
		},
		Token: target.Token,
	})
	if err != nil {
		return err
	}

	log.Debug().Str("operator", target.OperatorID).Int("message", message.MessageID).Msg("Sent advisory push")

	return nil
}
