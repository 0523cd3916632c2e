package controller_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/egpaydcx/egpay-backend/internal/controller"
	"github.com/egpaydcx/egpay-backend/internal/intake"
	"github.com/egpaydcx/egpay-backend/internal/model"
	"github.com/egpaydcx/egpay-backend/internal/store"
	orderstore "github.com/egpaydcx/egpay-backend/internal/store/order"
	"github.com/egpaydcx/egpay-backend/internal/types/environments"
	"github.com/egpaydcx/egpay-backend/internal/utils/config"
	"github.com/egpaydcx/egpay-backend/internal/utils/logger"
)

var payout = "0x" + strings.Repeat("a", 40)

func expectKind(err error, kind controller.ErrorKind, status int) *controller.Error {
	var cerr *controller.Error
	ExpectWithOffset(1, errors.As(err, &cerr)).To(BeTrue(), "expected *controller.Error, got %v", err)
	ExpectWithOffset(1, cerr.Kind).To(Equal(kind))
	ExpectWithOffset(1, cerr.Status).To(Equal(status))
	return cerr
}

var _ = Describe("Controller", func() {
	var (
		ctx   context.Context
		mem   *orderstore.MemoryStore
		chain *fakeChain
		notif *mockNotifier
		ctrl  controller.IController
		svc   intake.IIntake
		ops   model.Actor
	)

	submit := func(utr string, payInr, feeBps int64) *model.Order {
		pricer, err := intake.NewPricer(config.PricingConfig{
			MinInr: 10, MaxInr: 500000, MaxFeeBps: 500,
			Rates: map[string]string{"EGLIFE": "1"},
		})
		Expect(err).NotTo(HaveOccurred())
		q, err := pricer.Quote("EGLIFE", decimal.NewFromInt(payInr), decimal.NewFromInt(feeBps))
		Expect(err).NotTo(HaveOccurred())

		order, err := svc.Submit(ctx, intake.SubmitRequest{
			UTR:       utr,
			Coin:      "EGLIFE",
			ToAddress: payout,
			PayInr:    decimal.NewFromInt(payInr),
			FeeBps:    decimal.NewFromInt(feeBps),
			AmountInr: decimal.NewFromInt(q.AmountInr),
		})
		Expect(err).NotTo(HaveOccurred())
		return order
	}

	reload := func(id string) *model.Order {
		o, err := mem.GetByID(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return o
	}

	BeforeEach(func() {
		ctx = context.Background()
		mem = orderstore.NewMemoryStore()
		chain = newFakeChain(1_000_000)
		notif = newMockNotifier()
		ops = model.AdminActor("ops")

		st := &store.Store{Order: mem}
		log := logger.New(environments.Test)
		cfg := &config.AppConfig{Blockchain: config.BlockchainConfig{ReceiptTimeout: time.Second}}

		pricer, err := intake.NewPricer(config.PricingConfig{
			MinInr: 10, MaxInr: 500000, MaxFeeBps: 500,
			Rates: map[string]string{"EGLIFE": "1", "USDT": "0.011"},
		})
		Expect(err).NotTo(HaveOccurred())

		svc = intake.New(st, pricer, notif, log, nil)
		ctrl = controller.New(st, chain, notif, log, nil, cfg)
	})

	Describe("#Approve", func() {
		It("should approve a pending order and settle it on-chain", func() {
			order := submit("123456789012", 1000, 50)

			res, err := ctrl.Approve(ctx, order.ID, ops)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.OK).To(BeTrue())
			Expect(res.Status).To(Equal(model.OrderStatusTransferred))
			Expect(res.TxHash).NotTo(BeEmpty())
			Expect(res.BlockNumber).NotTo(BeNil())

			stored := reload(order.ID)
			Expect(stored.TxHash).To(Equal(res.TxHash))
			Expect(stored.ApprovedAt).NotTo(BeNil())
			Expect(stored.AdminNote).To(ContainSubstring("Approved by ADMIN:ops"))
			Expect(stored.AdminNote).To(ContainSubstring("TX:" + res.TxHash))
			Expect(stored.TransferInFlight()).To(BeFalse())
			Expect(chain.minedTransfers()).To(Equal(1))

			notif.AssertCalled(GinkgoT(), "OrderSettled", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
				return o.ID == order.ID
			}))
		})

		It("should return the stored hash without a second transfer when approved again", func() {
			order := submit("123456789012", 1000, 50)
			first, err := ctrl.Approve(ctx, order.ID, ops)
			Expect(err).NotTo(HaveOccurred())

			second, err := ctrl.Approve(ctx, order.ID, model.TelegramActor("alice", 42))
			Expect(err).NotTo(HaveOccurred())
			Expect(second.OK).To(BeTrue())
			Expect(second.AlreadyProcessed).To(BeTrue())
			Expect(second.Message).To(Equal("Already approved"))
			Expect(second.TxHash).To(Equal(first.TxHash))
			Expect(second.Status).To(Equal(first.Status))

			prepares, _, _ := chain.stats()
			Expect(prepares).To(Equal(1))
			Expect(chain.minedTransfers()).To(Equal(1))
		})

		It("should execute exactly one transfer under concurrent approvals", func() {
			order := submit("123456789012", 1000, 50)

			var wg sync.WaitGroup
			results := make(chan *controller.Result, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					actor := ops
					if i%2 == 1 {
						actor = model.TelegramActor("alice", 42)
					}
					res, err := ctrl.Approve(ctx, order.ID, actor)
					Expect(err).NotTo(HaveOccurred())
					results <- res
				}(i)
			}
			wg.Wait()
			close(results)

			processed := 0
			for res := range results {
				Expect(res.OK).To(BeTrue())
				if res.AlreadyProcessed {
					processed++
				}
			}
			Expect(processed).To(Equal(9))

			prepares, broadcasts, _ := chain.stats()
			Expect(prepares).To(Equal(1))
			Expect(broadcasts).To(Equal(1))
			Expect(chain.minedTransfers()).To(Equal(1))
			Expect(reload(order.ID).Status).To(Equal(model.OrderStatusTransferred))
		})

		It("should report NOT_FOUND for an unknown order", func() {
			_, err := ctrl.Approve(ctx, "BC_missing", ops)
			expectKind(err, controller.KindNotFound, 404)
		})

		It("should not transfer for a rejected order", func() {
			order := submit("123456789012", 1000, 50)
			_, err := ctrl.Reject(ctx, order.ID, ops)
			Expect(err).NotTo(HaveOccurred())

			res, err := ctrl.Approve(ctx, order.ID, ops)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.OK).To(BeFalse())
			Expect(res.AlreadyProcessed).To(BeTrue())
			Expect(res.Status).To(Equal(model.OrderStatusRejected))

			prepares, _, _ := chain.stats()
			Expect(prepares).To(BeZero())
		})
	})

	Describe("#Reject", func() {
		It("should reject a pending order and record the actor", func() {
			order := submit("123456789012", 1000, 50)

			res, err := ctrl.Reject(ctx, order.ID, model.TelegramActor("alice", 42))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.OK).To(BeTrue())
			Expect(res.Status).To(Equal(model.OrderStatusRejected))
			Expect(reload(order.ID).AdminNote).To(Equal("Rejected by TG:@alice(42)"))
		})

		It("should leave a settled order untouched", func() {
			order := submit("123456789012", 1000, 50)
			approved, err := ctrl.Approve(ctx, order.ID, ops)
			Expect(err).NotTo(HaveOccurred())
			before := reload(order.ID)

			res, err := ctrl.Reject(ctx, order.ID, ops)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.OK).To(BeFalse())
			Expect(res.AlreadyProcessed).To(BeTrue())
			Expect(res.Status).To(Equal(model.OrderStatusTransferred))
			Expect(res.TxHash).To(Equal(approved.TxHash))
			Expect(reload(order.ID)).To(Equal(before))
		})

		It("should be a no-op when rejected twice", func() {
			order := submit("123456789012", 1000, 50)
			_, err := ctrl.Reject(ctx, order.ID, ops)
			Expect(err).NotTo(HaveOccurred())
			before := reload(order.ID)

			res, err := ctrl.Reject(ctx, order.ID, ops)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.OK).To(BeTrue())
			Expect(res.AlreadyProcessed).To(BeTrue())
			Expect(reload(order.ID)).To(Equal(before))
		})
	})

	Describe("#ExecuteTransfer", func() {
		It("should refuse an order that was never approved and leave it unchanged", func() {
			order := submit("123456789012", 1000, 50)
			before := reload(order.ID)

			_, err := ctrl.ExecuteTransfer(ctx, order.ID)
			cerr := expectKind(err, controller.KindConflict, 409)
			Expect(cerr.Message).To(ContainSubstring("PENDING_CONFIRMATION"))
			Expect(reload(order.ID)).To(Equal(before))

			prepares, _, _ := chain.stats()
			Expect(prepares).To(BeZero())
		})

		It("should keep the order APPROVED on insufficient liquidity and settle once after top-up", func() {
			order := submit("123456789012", 1000, 50)
			chain.setBalance(10)

			_, err := ctrl.Approve(ctx, order.ID, ops)
			cerr := expectKind(err, controller.KindConflict, 409)
			Expect(cerr.Message).To(Equal("Insufficient token liquidity"))

			stored := reload(order.ID)
			Expect(stored.Status).To(Equal(model.OrderStatusApproved))
			Expect(stored.TxHash).To(BeEmpty())
			Expect(stored.TransferInFlight()).To(BeFalse())
			notif.AssertCalled(GinkgoT(), "SettlementBlocked", mock.Anything, mock.Anything, "Insufficient token liquidity (short 990 EGLIFE)")

			chain.setBalance(1_000_000)
			res, err := ctrl.ExecuteTransfer(ctx, order.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(model.OrderStatusTransferred))
			Expect(res.TxHash).NotTo(BeEmpty())

			again, err := ctrl.ExecuteTransfer(ctx, order.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.AlreadyProcessed).To(BeTrue())
			Expect(again.TxHash).To(Equal(res.TxHash))
			Expect(chain.minedTransfers()).To(Equal(1))
		})

		It("should stay retryable when the receipt reports failure", func() {
			order := submit("123456789012", 1000, 50)
			chain.failReceipt = true

			_, err := ctrl.Approve(ctx, order.ID, ops)
			expectKind(err, controller.KindTransferFailed, 502)

			stored := reload(order.ID)
			Expect(stored.Status).To(Equal(model.OrderStatusApproved))
			Expect(stored.TxHash).To(BeEmpty())
			Expect(stored.TransferInFlight()).To(BeFalse())
			Expect(stored.AdminNote).To(ContainSubstring("TX failed:"))

			chain.failReceipt = false
			res, err := ctrl.ExecuteTransfer(ctx, order.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(model.OrderStatusTransferred))
			Expect(chain.minedTransfers()).To(Equal(1))
		})

		It("should surface corrupted payout data as a data error", func() {
			order := submit("123456789012", 1000, 50)
			_, err := mem.WithLock(ctx, order.ID, func(o *model.Order) (bool, error) {
				o.Status = model.OrderStatusApproved
				o.ToAddress = "not-an-address"
				return true, nil
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = ctrl.ExecuteTransfer(ctx, order.ID)
			cerr := expectKind(err, controller.KindInvalidData, 500)
			Expect(cerr.PublicMessage()).To(Equal("Invalid order payout data"))
		})

		It("should treat a coin without a token contract as a data error", func() {
			order, err := svc.Submit(ctx, intake.SubmitRequest{
				UTR:       "123456789012",
				Coin:      "USDT",
				ToAddress: payout,
				PayInr:    decimal.NewFromInt(1000),
				FeeBps:    decimal.Zero,
				AmountInr: decimal.NewFromInt(1000),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = ctrl.Approve(ctx, order.ID, ops)
			expectKind(err, controller.KindInvalidData, 500)
			Expect(reload(order.ID).Status).To(Equal(model.OrderStatusApproved))
		})

		Context("when a previous attempt left a transfer marker", func() {
			It("should record a transfer that was mined while nobody was waiting", func() {
				order := submit("123456789012", 1000, 50)
				chain.waitErr = context.DeadlineExceeded

				_, err := ctrl.Approve(ctx, order.ID, ops)
				cerr := expectKind(err, controller.KindConflict, 409)
				Expect(cerr.Message).To(Equal(controller.MsgAwaitingConfirmation))
				marker := reload(order.ID).PendingTxHash
				Expect(marker).NotTo(BeEmpty())

				chain.waitErr = nil
				_, err = ctrl.ExecuteTransfer(ctx, order.ID)
				cerr = expectKind(err, controller.KindConflict, 409)
				Expect(cerr.Message).To(Equal(controller.MsgTransferInFlight))

				chain.mineAll()
				res, err := ctrl.ExecuteTransfer(ctx, order.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.TxHash).To(Equal(marker))
				Expect(res.Status).To(Equal(model.OrderStatusTransferred))

				prepares, broadcasts, _ := chain.stats()
				Expect(prepares).To(Equal(1))
				Expect(broadcasts).To(Equal(1))
				Expect(reload(order.ID).TransferInFlight()).To(BeFalse())
			})

			It("should rebroadcast the same signed transaction when the node never saw it", func() {
				order := submit("123456789012", 1000, 50)
				chain.broadcastErr = errors.New("connection reset by peer")

				_, err := ctrl.Approve(ctx, order.ID, ops)
				expectKind(err, controller.KindTransferFailed, 502)
				marker := reload(order.ID).PendingTxHash
				Expect(marker).NotTo(BeEmpty())

				res, err := ctrl.ExecuteTransfer(ctx, order.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.TxHash).To(Equal(marker))

				prepares, _, resets := chain.stats()
				Expect(prepares).To(Equal(1))
				Expect(resets).To(Equal(1))
				Expect(chain.minedTransfers()).To(Equal(1))
			})

			It("should sign a fresh transfer when the old one was dropped", func() {
				order := submit("123456789012", 1000, 50)
				chain.broadcastErr = errors.New("connection reset by peer")

				_, err := ctrl.Approve(ctx, order.ID, ops)
				expectKind(err, controller.KindTransferFailed, 502)
				stale := reload(order.ID).PendingTxHash
				chain.consumeNonce()

				res, err := ctrl.ExecuteTransfer(ctx, order.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.TxHash).NotTo(Equal(stale))
				Expect(reload(order.ID).AdminNote).To(ContainSubstring("TX dropped:" + stale))

				prepares, _, _ := chain.stats()
				Expect(prepares).To(Equal(2))
				Expect(chain.minedTransfers()).To(Equal(1))
			})
		})
	})

	Describe("#MarkFailed", func() {
		It("should close an approved order that could not be settled", func() {
			order := submit("123456789012", 1000, 50)
			chain.setBalance(0)
			_, err := ctrl.Approve(ctx, order.ID, ops)
			expectKind(err, controller.KindConflict, 409)

			res, err := ctrl.MarkFailed(ctx, order.ID, ops, "refunded to payer")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(model.OrderStatusFailed))
			Expect(reload(order.ID).AdminNote).To(ContainSubstring("Failed by ADMIN:ops: refunded to payer"))

			_, err = ctrl.ExecuteTransfer(ctx, order.ID)
			expectKind(err, controller.KindConflict, 409)

			again, err := ctrl.MarkFailed(ctx, order.ID, ops, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(again.AlreadyProcessed).To(BeTrue())
		})

		It("should refuse pending orders and transfers in flight", func() {
			order := submit("123456789012", 1000, 50)
			_, err := ctrl.MarkFailed(ctx, order.ID, ops, "x")
			expectKind(err, controller.KindConflict, 409)

			chain.waitErr = context.DeadlineExceeded
			_, err = ctrl.Approve(ctx, order.ID, ops)
			expectKind(err, controller.KindConflict, 409)

			_, err = ctrl.MarkFailed(ctx, order.ID, ops, "x")
			cerr := expectKind(err, controller.KindConflict, 409)
			Expect(cerr.Message).To(Equal(controller.MsgTransferInFlight))
			Expect(reload(order.ID).Status).To(Equal(model.OrderStatusApproved))
		})
	})

	Describe("#Handle", func() {
		It("should route commands to the shared transitions", func() {
			order := submit("123456789012", 1000, 50)

			res, err := ctrl.Handle(ctx, controller.Command{
				Action:  controller.ActionApprove,
				OrderID: " " + order.ID + " ",
				Actor:   model.TelegramActor("alice", 42),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(model.OrderStatusTransferred))
			Expect(reload(order.ID).AdminNote).To(HavePrefix("Approved by TG:@alice(42)"))
		})

		It("should reject malformed commands", func() {
			_, err := ctrl.Handle(ctx, controller.Command{Action: controller.ActionApprove})
			expectKind(err, controller.KindBadRequest, 400)

			_, err = ctrl.Handle(ctx, controller.Command{Action: "REFUND", OrderID: "BC_1"})
			expectKind(err, controller.KindBadRequest, 400)
		})
	})

	Describe("#HotWallet", func() {
		It("should report the hot wallet balance in raw and human units", func() {
			view, err := ctrl.HotWallet(ctx, "eglife")
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Address).To(Equal(hotWallet.Hex()))
			Expect(view.Coin).To(Equal("EGLIFE"))
			Expect(view.Decimals).To(Equal(18))
			Expect(view.Balance).To(Equal("1000000"))
			Expect(view.BalanceRaw).To(Equal("1000000" + strings.Repeat("0", 18)))

			_, err = ctrl.HotWallet(ctx, "DOGE")
			expectKind(err, controller.KindBadRequest, 400)
		})
	})

	Describe("end to end", func() {
		It("should create, settle, report and stay idempotent", func() {
			order, err := svc.Submit(ctx, intake.SubmitRequest{
				UTR:       "123456789012",
				Coin:      "EGLIFE",
				ToAddress: payout,
				PayInr:    decimal.NewFromInt(1000),
				FeeBps:    decimal.NewFromInt(50),
				AmountInr: decimal.NewFromInt(1005),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(order.FeeInr).To(Equal(int64(5)))
			Expect(order.AmountInr).To(Equal(int64(1005)))
			Expect(order.Status).To(Equal(model.OrderStatusPendingConfirmation))

			approved, err := ctrl.Approve(ctx, order.ID, ops)
			Expect(err).NotTo(HaveOccurred())
			Expect(approved.TxHash).NotTo(BeEmpty())

			status, err := svc.Status(ctx, order.ID, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Found).To(BeTrue())
			Expect(status.Order.TxHash).To(Equal(approved.TxHash))

			again, err := ctrl.Approve(ctx, order.ID, ops)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.TxHash).To(Equal(approved.TxHash))

			prepares, _, _ := chain.stats()
			Expect(prepares).To(Equal(1))
		})

		It("should reject a tampered total without creating a row", func() {
			_, err := svc.Submit(ctx, intake.SubmitRequest{
				UTR:       "123456789012",
				Coin:      "EGLIFE",
				ToAddress: payout,
				PayInr:    decimal.NewFromInt(1000),
				FeeBps:    decimal.NewFromInt(50),
				AmountInr: decimal.NewFromInt(1004),
			})
			var verr *intake.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())

			_, total, err := mem.List(ctx, model.OrderFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(BeZero())
		})
	})
})
