package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"shopbot/internal/domain/model"
	repo "shopbot/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const (
	SenderCustomer = "customer"
	SenderAI       = "ai"

	recentMessageLogs = 10
	maxMessageLength  = 1000
)

// n8n（WhatsApp）から呼ばれる顧客/会話ログ
type CustomerUsecase struct {
	customers repo.CustomerRepository
	messages  repo.MessageLogRepository
	forwarder MessageForwarder
	logger    echo.Logger
}

func NewCustomerUsecase(
	customers repo.CustomerRepository,
	messages repo.MessageLogRepository,
	forwarder MessageForwarder,
	logger echo.Logger,
) *CustomerUsecase {
	return &CustomerUsecase{customers: customers, messages: messages, forwarder: forwarder, logger: logger}
}

type CreateCustomerInput struct {
	Name        string
	PhoneNumber string
}

func (u *CustomerUsecase) Create(ctx context.Context, in CreateCustomerInput) (model.Customer, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.PhoneNumber)

	fields := map[string]string{}
	if name == "" {
		fields["name"] = "name is required"
	}
	if phone == "" {
		fields["phone_number"] = "phone_number is required"
	}
	if len(fields) > 0 {
		return model.Customer{}, NewValidationError(fields)
	}

	c, err := u.customers.Create(ctx, model.Customer{Name: name, PhoneNumber: phone})
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Customer{}, NewValidationError(map[string]string{"phone_number": "phone_number has already been taken"})
	}
	if err != nil {
		return model.Customer{}, dbError(err)
	}

	u.logger.Infoj(log.JSON{"msg": "customer created", "customer_id": c.ID})
	return c, nil
}

type CustomerLookup struct {
	Found    bool            `json:"found"`
	Customer *model.Customer `json:"customer"`
}

// 見つからなくてもエラーにしない（n8nの分岐用）
func (u *CustomerUsecase) LookupByPhone(ctx context.Context, phone string) (CustomerLookup, error) {
	c, err := u.customers.FindByPhone(ctx, strings.TrimSpace(phone))
	if errors.Is(err, repo.ErrNotFound) {
		return CustomerLookup{Found: false}, nil
	}
	if err != nil {
		return CustomerLookup{}, dbError(err)
	}
	return CustomerLookup{Found: true, Customer: &c}, nil
}

func (u *CustomerUsecase) FindByPhone(ctx context.Context, phone string) (model.Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return model.Customer{}, NewValidationError(map[string]string{"phone_number": "phone_number is required"})
	}
	c, err := u.customers.FindByPhone(ctx, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Customer{}, NewHTTPError(http.StatusNotFound, "customer not found")
	}
	if err != nil {
		return model.Customer{}, dbError(err)
	}
	return c, nil
}

type CreateMessageLogInput struct {
	CustomerID       int64
	CustomerMessages string
	AIMessages       string
}

// 1往復分（顧客 + AI）を保存
func (u *CustomerUsecase) CreateMessageLog(ctx context.Context, in CreateMessageLogInput) (model.MessageLog, error) {
	if _, err := u.findCustomer(ctx, in.CustomerID, http.StatusUnprocessableEntity); err != nil {
		return model.MessageLog{}, err
	}

	m, err := u.messages.Create(ctx, model.MessageLog{
		CustomerID:       in.CustomerID,
		CustomerMessages: in.CustomerMessages,
		AIMessages:       in.AIMessages,
	})
	if err != nil {
		return model.MessageLog{}, dbError(err)
	}
	return m, nil
}

type MessageLogOutput struct {
	ID               int64     `json:"id"`
	CustomerID       int64     `json:"customer_id"`
	CustomerName     string    `json:"customer_name"`
	CustomerMessages string    `json:"customer_messages"`
	AIMessages       string    `json:"ai_messages"`
	CreatedAt        time.Time `json:"created_at"`
}

// 新しい順に10件
func (u *CustomerUsecase) RecentMessageLogs(ctx context.Context) ([]MessageLogOutput, error) {
	logs, err := u.messages.ListRecent(ctx, recentMessageLogs)
	if err != nil {
		return nil, dbError(err)
	}

	out := make([]MessageLogOutput, 0, len(logs))
	for _, m := range logs {
		name := ""
		if m.Customer != nil {
			name = m.Customer.Name
		}
		out = append(out, MessageLogOutput{
			ID:               m.ID,
			CustomerID:       m.CustomerID,
			CustomerName:     name,
			CustomerMessages: m.CustomerMessages,
			AIMessages:       m.AIMessages,
			CreatedAt:        m.CreatedAt,
		})
	}
	return out, nil
}

type ChatMessage struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Conversation struct {
	Customer model.Customer `json:"customer"`
	Messages []ChatMessage  `json:"messages"`
}

// 会話を古い順に。空の側は出さない
func (u *CustomerUsecase) Conversation(ctx context.Context, customerID int64) (Conversation, error) {
	c, err := u.findCustomer(ctx, customerID, http.StatusNotFound)
	if err != nil {
		return Conversation{}, err
	}

	logs, err := u.messages.ListByCustomerID(ctx, customerID)
	if err != nil {
		return Conversation{}, dbError(err)
	}

	msgs := make([]ChatMessage, 0, len(logs)*2)
	for _, m := range logs {
		if m.CustomerMessages != "" {
			msgs = append(msgs, ChatMessage{ID: m.ID, Sender: SenderCustomer, Text: m.CustomerMessages, CreatedAt: m.CreatedAt})
		}
		if m.AIMessages != "" {
			msgs = append(msgs, ChatMessage{ID: m.ID, Sender: SenderAI, Text: m.AIMessages, CreatedAt: m.CreatedAt})
		}
	}
	return Conversation{Customer: c, Messages: msgs}, nil
}

type SendMessageInput struct {
	CustomerID int64
	Message    string
	Sender     string
}

// 送った側だけを保存する。AIの発言はn8nに転送（失敗してもエラーにしない）
func (u *CustomerUsecase) Send(ctx context.Context, in SendMessageInput) (model.MessageLog, error) {
	msg := strings.TrimSpace(in.Message)
	fields := map[string]string{}
	if msg == "" {
		fields["message"] = "message is required"
	} else if len(msg) > maxMessageLength {
		fields["message"] = "message may not be greater than 1000 characters"
	}
	if in.Sender != SenderCustomer && in.Sender != SenderAI {
		fields["sender"] = "sender must be customer or ai"
	}
	if len(fields) > 0 {
		return model.MessageLog{}, NewValidationError(fields)
	}

	c, err := u.findCustomer(ctx, in.CustomerID, http.StatusUnprocessableEntity)
	if err != nil {
		return model.MessageLog{}, err
	}

	entry := model.MessageLog{CustomerID: c.ID}
	if in.Sender == SenderAI {
		entry.AIMessages = msg
	} else {
		entry.CustomerMessages = msg
	}

	saved, err := u.messages.Create(ctx, entry)
	if err != nil {
		return model.MessageLog{}, dbError(err)
	}

	if saved.AIMessages != "" {
		if err := u.forwarder.ForwardAIMessage(ctx, c.PhoneNumber, saved.AIMessages); err != nil {
			u.logger.Warnj(log.JSON{
				"msg":            "forward ai message failed",
				"message_log_id": saved.ID,
				"customer_id":    c.ID,
				"error":          err.Error(),
			})
		}
	}
	return saved, nil
}

// 存在しない顧客は、用途によって422か404
func (u *CustomerUsecase) findCustomer(ctx context.Context, id int64, missingStatus int) (model.Customer, error) {
	if id <= 0 {
		return model.Customer{}, NewValidationError(map[string]string{"customer_id": "customer_id is required"})
	}
	c, err := u.customers.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		if missingStatus == http.StatusUnprocessableEntity {
			return model.Customer{}, NewValidationError(map[string]string{"customer_id": "the selected customer_id is invalid"})
		}
		return model.Customer{}, NewHTTPError(http.StatusNotFound, "customer not found")
	}
	if err != nil {
		return model.Customer{}, dbError(err)
	}
	return c, nil
}
