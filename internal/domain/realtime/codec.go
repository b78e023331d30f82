package realtime

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/bakery/orderdesk/internal/domain/order"
	"github.com/bakery/orderdesk/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

// Decoding errors
var (
	ErrMalformedFrame = shared.NewDomainError("MALFORMED_FRAME", "Socket frame is not valid JSON")
	ErrUnknownEvent   = shared.NewDomainError("UNKNOWN_EVENT", "Socket event name is not recognised")
	ErrInvalidPayload = shared.NewDomainError("INVALID_PAYLOAD", "Socket event payload failed validation")
)

// Frame is the wire envelope: {"event": name, "data": {...}}.
// EventID is optional; servers that number their events set it.
type Frame struct {
	Event   EventName       `json:"event"`
	Data    json.RawMessage `json:"data"`
	EventID string          `json:"eventId,omitempty"`
}

var constructors = map[EventName]func() Event{
	EventNewOrderFromBranch:     func() Event { return &NewOrderFromBranch{} },
	EventOrderApprovedForBranch: func() Event { return &OrderApprovedForBranch{} },
	EventTaskAssigned:           func() Event { return &TaskAssigned{} },
	EventTaskCompleted:          func() Event { return &TaskCompleted{} },
	EventOrderCompletedByChefs:  func() Event { return &OrderCompletedByChefs{} },
	EventOrderInTransitToBranch: func() Event { return &OrderInTransitToBranch{} },
	EventBranchConfirmedReceipt: func() Event { return &BranchConfirmedReceipt{} },
	EventOrderStatusUpdated:     func() Event { return &OrderStatusUpdated{} },
	EventItemStatusUpdated:      func() Event { return &ItemStatusUpdated{} },
	EventReturnStatusUpdated:    func() Event { return &ReturnStatusUpdated{} },
	EventMissingAssignments:     func() Event { return &MissingAssignments{} },
	EventReturnCreated:          func() Event { return &ReturnCreated{} },
}

// IsInbound reports whether name is part of the inbound union
func IsInbound(name EventName) bool {
	_, ok := constructors[name]
	return ok
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		return order.OrderStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("item_status", func(fl validator.FieldLevel) bool {
		return order.ItemStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("return_status", func(fl validator.FieldLevel) bool {
		_, ok := order.ParseReturnStatus(fl.Field().String())
		return ok
	})
	return v
}

type normalizer interface {
	normalize()
}

// DecodeFrame parses and validates one raw frame
func DecodeFrame(raw []byte) (Event, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return Decode(f)
}

// Decode turns a frame into its typed event. Unknown names and payloads that
// fail validation are rejected. The event id is the frame's own id when set,
// otherwise a hash of the frame content so redeliveries share an id.
func Decode(f Frame) (Event, error) {
	ctor, ok := constructors[f.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
	if len(f.Data) == 0 || string(f.Data) == "null" {
		return nil, fmt.Errorf("%w: %s has no data", ErrInvalidPayload, f.Event)
	}
	ev := ctor()
	if err := json.Unmarshal(f.Data, ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, f.Event, err)
	}
	if n, ok := ev.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidPayload, f.Event, describe(err))
	}
	if full := ev.FullOrder(); full != nil && full.ID != ev.OrderID() {
		return nil, fmt.Errorf("%w: %s: order payload id %q does not match orderId %q",
			ErrInvalidPayload, f.Event, full.ID, ev.OrderID())
	}

	id := f.EventID
	if id == "" {
		id = ContentID(f.Event, f.Data)
	}
	ev.stamp(shared.BaseDomainEvent{
		ID:        id,
		Type:      string(f.Event),
		Timestamp: time.Now(),
		AggID:     ev.OrderID(),
		AggType:   AggregateTypeOrder,
	})
	return ev, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Namespace()+" "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

// ContentID hashes an event name and payload. Whitespace differences in the
// payload produce different ids.
func ContentID(name EventName, data []byte) string {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Encode builds a frame for an outbound or relayed payload
func Encode(name EventName, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return json.Marshal(Frame{Event: name, Data: data})
}
