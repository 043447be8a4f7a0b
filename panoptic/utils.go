package panoptic

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"

	"github.com/Luismorlan/postwall/publisher"
)

// NewRunReportMessage wraps a run report into an event bus message.
func NewRunReportMessage(report *publisher.RunReport) (*message.Message, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, errors.Wrap(err, "fail to encode run report")
	}
	return message.NewMessage(watermill.NewUUID(), payload), nil
}

func DecodeRunReport(msg *message.Message) (*publisher.RunReport, error) {
	report := &publisher.RunReport{}
	if err := json.Unmarshal(msg.Payload, report); err != nil {
		return nil, errors.Wrap(err, "fail to decode run report")
	}
	return report, nil
}
