package notifier

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/egpaydcx/egpay-backend/internal/model"
	"github.com/egpaydcx/egpay-backend/internal/monitoring"
	"github.com/egpaydcx/egpay-backend/internal/telegram"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

const (
	sendTimeout      = 5 * time.Second
	maxDigestEntries = 20
)

type notifier struct {
	client  telegram.IClient
	logger  *logger.Logger
	metrics *monitoring.BusinessMetricsRecorder
}

// New wraps a Telegram client. A nil client yields a notifier that only logs.
func New(client telegram.IClient, logger *logger.Logger, metrics *monitoring.BusinessMetricsRecorder) INotifier {
	return &notifier{
		client:  client,
		logger:  logger,
		metrics: metrics,
	}
}

func (n *notifier) OrderCreated(ctx context.Context, order model.Order) {
	var b strings.Builder
	b.WriteString("🛎 <b>NEW BUY ORDER</b>\n\n")
	fmt.Fprintf(&b, "Coin: <b>%s</b>\n", esc(order.Coin))
	fmt.Fprintf(&b, "Order ID: <code>%s</code>\n", esc(order.ID))
	fmt.Fprintf(&b, "UTR: <code>%s</code> (%s)\n", esc(order.UTR), esc(string(order.PayMethod)))
	fmt.Fprintf(&b, "Total Pay: ₹%d\n", order.AmountInr)
	fmt.Fprintf(&b, "Base Pay: ₹%d\n", order.PayInr)
	fmt.Fprintf(&b, "Fee: ₹%d (%d bps)\n", order.FeeInr, order.FeeBps)
	fmt.Fprintf(&b, "Rate: %s\n", order.Rate.String())
	fmt.Fprintf(&b, "Token Out: <b>%s</b>\n", order.AmountOut.String())
	fmt.Fprintf(&b, "To:\n<code>%s</code>\n\n", esc(order.ToAddress))
	fmt.Fprintf(&b, "Status: <b>%s</b>", order.Status)

	n.send(ctx, "order_created", order.ID, telegram.OutgoingMessage{
		Text:        b.String(),
		ReplyMarkup: telegram.ApprovalKeyboard(order.ID),
	})
}

func (n *notifier) OrderTransitioned(ctx context.Context, order model.Order, actor model.Actor) {
	text := fmt.Sprintf("Order <code>%s</code> is now <b>%s</b>\nBy: %s",
		esc(order.ID), order.Status, esc(actor.String()))
	n.send(ctx, "order_transitioned", order.ID, telegram.OutgoingMessage{Text: text})
}

func (n *notifier) OrderSettled(ctx context.Context, order model.Order) {
	var b strings.Builder
	b.WriteString("✅ <b>TRANSFER CONFIRMED</b>\n\n")
	fmt.Fprintf(&b, "Order ID: <code>%s</code>\n", esc(order.ID))
	fmt.Fprintf(&b, "Sent: <b>%s %s</b>\n", order.AmountOut.String(), esc(order.Coin))
	fmt.Fprintf(&b, "To: <code>%s</code>\n", esc(order.ToAddress))
	fmt.Fprintf(&b, "TX: <code>%s</code>", esc(order.TxHash))
	if order.BlockNumber != nil {
		fmt.Fprintf(&b, "\nBlock: %d", *order.BlockNumber)
	}

	n.send(ctx, "order_settled", order.ID, telegram.OutgoingMessage{
		Text:                  b.String(),
		DisableWebPagePreview: true,
	})
}

func (n *notifier) SettlementBlocked(ctx context.Context, order model.Order, reason string) {
	text := fmt.Sprintf("⚠️ <b>TRANSFER NOT COMPLETED</b>\n\nOrder ID: <code>%s</code>\nCoin: %s\nAmount: %s\nReason: %s\n\nOrder stays %s and can be retried.",
		esc(order.ID), esc(order.Coin), order.AmountOut.String(), esc(reason), order.Status)
	n.send(ctx, "settlement_blocked", order.ID, telegram.OutgoingMessage{Text: text})
}

func (n *notifier) StaleDigest(ctx context.Context, pending []model.Order, approved []model.Order) error {
	if len(pending) == 0 && len(approved) == 0 {
		return nil
	}
	if n.client == nil {
		n.metrics.RecordNotification("stale_digest", "skipped")
		return nil
	}

	var b strings.Builder
	b.WriteString("⏰ <b>ORDERS WAITING</b>\n")
	writeDigestSection(&b, "Awaiting confirmation", pending)
	writeDigestSection(&b, "Approved, not transferred", approved)

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, err := n.client.SendMessage(sendCtx, telegram.OutgoingMessage{Text: b.String()}); err != nil {
		n.metrics.RecordNotification("stale_digest", "error")
		return err
	}
	n.metrics.RecordNotification("stale_digest", "success")
	return nil
}

func writeDigestSection(b *strings.Builder, title string, orders []model.Order) {
	if len(orders) == 0 {
		return
	}
	fmt.Fprintf(b, "\n<b>%s</b> (%d)\n", title, len(orders))
	for i, o := range orders {
		if i == maxDigestEntries {
			fmt.Fprintf(b, "… and %d more\n", len(orders)-maxDigestEntries)
			break
		}
		fmt.Fprintf(b, "• <code>%s</code> ₹%d %s %s, %s ago\n",
			esc(o.ID), o.AmountInr, o.AmountOut.String(), esc(o.Coin), time.Since(o.CreatedAt).Truncate(time.Minute))
	}
}

// send detaches from the caller's cancellation so a finished HTTP request does not drop the message
func (n *notifier) send(ctx context.Context, event, orderID string, msg telegram.OutgoingMessage) {
	if n.client == nil {
		n.metrics.RecordNotification(event, "skipped")
		n.logger.Debug("[notifier.send] telegram disabled, skipping", map[string]string{
			"event":   event,
			"orderId": orderID,
		})
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if _, err := n.client.SendMessage(sendCtx, msg); err != nil {
		n.metrics.RecordNotification(event, "error")
		n.logger.Error("[notifier.send][SendMessage]", map[string]string{
			"event":   event,
			"orderId": orderID,
			"error":   err.Error(),
		})
		return
	}
	n.metrics.RecordNotification(event, "success")
}

func esc(s string) string {
	return html.EscapeString(s)
}
