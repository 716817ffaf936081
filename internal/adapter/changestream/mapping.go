package changestream

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
	"github.com/polkiloo/salesrollup/internal/domain/model"
)

const (
	opInsert  = "insert"
	opUpdate  = "update"
	opReplace = "replace"
	opDelete  = "delete"
)

// changeDocument is the subset of a change stream event the consumer reads.
type changeDocument struct {
	ID                       bson.Raw            `bson:"_id,omitempty"`
	OperationType            string              `bson:"operationType"`
	ClusterTime              primitive.Timestamp `bson:"clusterTime"`
	WallTime                 *time.Time          `bson:"wallTime,omitempty"`
	DocumentKey              bson.Raw            `bson:"documentKey"`
	FullDocument             bson.Raw            `bson:"fullDocument,omitempty"`
	FullDocumentBeforeChange bson.Raw            `bson:"fullDocumentBeforeChange,omitempty"`
}

// toEvent maps a change document to a ChangeEvent. Updates need both images
// and deletes need the pre-image; without them the increments cannot be
// computed.
func toEvent(doc changeDocument) (model.ChangeEvent, error) {
	ev := model.ChangeEvent{
		OrderID:    documentID(doc.DocumentKey),
		Revision:   revision(doc),
		OccurredAt: occurredAt(doc),
	}

	var err error
	switch doc.OperationType {
	case opInsert:
		if ev.After, err = snapshotOf(doc.FullDocument); err != nil {
			return ev, err
		}
	case opUpdate, opReplace:
		if ev.Before, err = snapshotOf(doc.FullDocumentBeforeChange); err != nil {
			return ev, err
		}
		if ev.After, err = snapshotOf(doc.FullDocument); err != nil {
			return ev, err
		}
		if ev.Before == nil || ev.After == nil {
			return ev, fmt.Errorf("%s needs both document images: %w", doc.OperationType, domainErrors.ErrInvalidEvent)
		}
	case opDelete:
		if ev.Before, err = snapshotOf(doc.FullDocumentBeforeChange); err != nil {
			return ev, err
		}
	default:
		return ev, fmt.Errorf("operation %q: %w", doc.OperationType, domainErrors.ErrInvalidEvent)
	}

	if ev.Kind() == model.ChangeInvalid {
		return ev, fmt.Errorf("%s without document images: %w", doc.OperationType, domainErrors.ErrInvalidEvent)
	}
	return ev, nil
}

// revision identifies the event by its resume token. Writes of one
// transaction share a cluster time, so that is only a fallback for events
// without a token.
func revision(doc changeDocument) string {
	if len(doc.ID) > 0 {
		if v, err := doc.ID.LookupErr("_data"); err == nil {
			if data, ok := v.StringValueOK(); ok && data != "" {
				return data
			}
		}
	}
	ts := doc.ClusterTime
	if ts.T == 0 && ts.I == 0 {
		return ""
	}
	return fmt.Sprintf("%d.%d", ts.T, ts.I)
}

func occurredAt(doc changeDocument) time.Time {
	if doc.WallTime != nil && !doc.WallTime.IsZero() {
		return doc.WallTime.UTC()
	}
	if doc.ClusterTime.T != 0 {
		return time.Unix(int64(doc.ClusterTime.T), 0).UTC()
	}
	return time.Time{}
}

func documentID(key bson.Raw) string {
	if len(key) == 0 {
		return ""
	}
	v, err := key.LookupErr("_id")
	if err != nil {
		return ""
	}
	return idString(v)
}

func idString(v bson.RawValue) string {
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex()
	}
	if s, ok := v.StringValueOK(); ok {
		return s
	}
	return strings.TrimSpace(v.String())
}

// snapshotOf decodes an order document. A missing image returns nil.
func snapshotOf(raw bson.Raw) (*model.OrderSnapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	snap := &model.OrderSnapshot{}
	var err error
	if v, ok := lookup(raw, "tenantId"); ok {
		snap.TenantID = idString(v)
	}
	if snap.Price, err = decimalField(raw, "price"); err != nil {
		return nil, err
	}
	if snap.Quantity, err = decimalField(raw, "quantity"); err != nil {
		return nil, err
	}
	if snap.CostPrice, err = decimalField(raw, "costPrice"); err != nil {
		return nil, err
	}
	if snap.RealDeliveryCost, err = decimalField(raw, "realDeliveryCost"); err != nil {
		return nil, err
	}
	if v, ok := lookup(raw, "isPaid"); ok {
		if snap.IsPaid, ok = v.BooleanOK(); !ok {
			return nil, fmt.Errorf("isPaid of type %s: %w", v.Type, domainErrors.ErrInvalidEvent)
		}
	}
	if v, ok := lookup(raw, "status"); ok {
		if snap.Status, ok = v.StringValueOK(); !ok {
			return nil, fmt.Errorf("status of type %s: %w", v.Type, domainErrors.ErrInvalidEvent)
		}
	}
	if v, ok := lookup(raw, "date"); ok {
		switch v.Type {
		case bson.TypeString:
			snap.Date = v.StringValue()
		case bson.TypeDateTime:
			snap.Date = v.Time().UTC().Format(time.RFC3339Nano)
		default:
			return nil, fmt.Errorf("date of type %s: %w", v.Type, domainErrors.ErrInvalidEvent)
		}
	}
	return snap, nil
}

// lookup returns the value of key unless it is absent or null.
func lookup(raw bson.Raw, key string) (bson.RawValue, bool) {
	v, err := raw.LookupErr(key)
	if err != nil || v.Type == bson.TypeNull || v.Type == bson.TypeUndefined {
		return bson.RawValue{}, false
	}
	return v, true
}

func decimalField(raw bson.Raw, key string) (decimal.NullDecimal, error) {
	v, ok := lookup(raw, key)
	if !ok {
		return decimal.NullDecimal{}, nil
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch v.Type {
	case bson.TypeDouble:
		d = decimal.NewFromFloat(v.Double())
	case bson.TypeInt32:
		d = decimal.NewFromInt32(v.Int32())
	case bson.TypeInt64:
		d = decimal.NewFromInt(v.Int64())
	case bson.TypeDecimal128:
		d, err = decimal.NewFromString(v.Decimal128().String())
	case bson.TypeString:
		d, err = decimal.NewFromString(strings.TrimSpace(v.StringValue()))
	default:
		err = fmt.Errorf("unsupported type %s", v.Type)
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%s: %v: %w", key, err, domainErrors.ErrInvalidEvent)
	}
	return decimal.NewNullDecimal(d), nil
}
