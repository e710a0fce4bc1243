package notify

import (
	"fmt"

	logger "github.com/sirupsen/logrus"

	"signalscanner/src/model"
)

// LogNotifier writes signal alerts to the application log. Replays construct
// it muted so thousands of historical transitions do not flood the output.
type LogNotifier struct {
	Log   *logger.Entry
	muted bool
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{Log: logger.WithField("component", "notifier")}
}

func NewMutedNotifier() *LogNotifier {
	return &LogNotifier{Log: logger.WithField("component", "notifier"), muted: true}
}

func (n *LogNotifier) Notify(event string, sig *model.Signal) {
	if n.muted || sig == nil {
		return
	}

	n.Log.WithFields(logger.Fields{
		"event":     event,
		"signal_id": sig.ID,
		"ticker":    sig.Ticker,
		"market":    sig.Market,
		"direction": sig.Direction,
		"status":    sig.Status,
	}).Info(describe(event, sig))
}

func describe(event string, sig *model.Signal) string {
	switch event {
	case "pending":
		return fmt.Sprintf("%s setup forming, watching for the trigger", sig.Ticker)
	case "triggered":
		if sig.EntryPrice != nil {
			return fmt.Sprintf("%s %s signal triggered, entry %.2f", sig.Ticker, sig.Direction, *sig.EntryPrice)
		}
		return fmt.Sprintf("%s %s signal triggered", sig.Ticker, sig.Direction)
	case "entered":
		if sig.ActualEntryPrice != nil {
			return fmt.Sprintf("%s position opened at %.2f", sig.Ticker, *sig.ActualEntryPrice)
		}
		return fmt.Sprintf("%s position opened", sig.Ticker)
	case "stopped":
		return fmt.Sprintf("%s stopped out", sig.Ticker)
	case "target_hit":
		return fmt.Sprintf("%s target reached", sig.Ticker)
	case "cancelled":
		return fmt.Sprintf("%s signal cancelled", sig.Ticker)
	case "closed":
		return fmt.Sprintf("%s position closed", sig.Ticker)
	default:
		return fmt.Sprintf("%s signal %s", sig.Ticker, event)
	}
}
