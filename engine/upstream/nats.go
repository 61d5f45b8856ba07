package upstream

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/carviewer/engine/catalog"
	"github.com/WessleyAI/carviewer/pkg/natsutil"
)

// NATS subjects answered by Serve.
const (
	SubjectCarsList          = "catalog.cars.list"
	SubjectCarGet            = "catalog.cars.get"
	SubjectManufacturersList = "catalog.manufacturers.list"
	SubjectCategoriesList    = "catalog.categories.list"
	// SubjectUpdated carries CatalogUpdated events.
	SubjectUpdated = "catalog.updated"
)

// CarRequest asks for one car.
type CarRequest struct {
	ID int `json:"id"`
}

// CatalogUpdated announces that the served catalog changed.
type CatalogUpdated struct {
	Cars int       `json:"cars"`
	At   time.Time `json:"at"`
}

// NATSClient fetches the catalog over NATS request/reply.
type NATSClient struct {
	nc      *nats.Conn
	timeout time.Duration
}

var _ Source = (*NATSClient)(nil)

// NewNATSClient creates a NATS source. timeout bounds each request when the
// caller's context has no earlier deadline; zero uses nats.DefaultTimeout.
func NewNATSClient(nc *nats.Conn, timeout time.Duration) *NATSClient {
	if timeout <= 0 {
		timeout = nats.DefaultTimeout
	}
	return &NATSClient{nc: nc, timeout: timeout}
}

func (c *NATSClient) FetchCars(ctx context.Context) ([]catalog.Car, error) {
	return natsCall[struct{}, []catalog.Car](ctx, c, OpCars, 0, SubjectCarsList, struct{}{})
}

func (c *NATSClient) FetchCarByID(ctx context.Context, id int) (catalog.Car, error) {
	return natsCall[CarRequest, catalog.Car](ctx, c, OpCar, id, SubjectCarGet, CarRequest{ID: id})
}

func (c *NATSClient) FetchManufacturers(ctx context.Context) ([]catalog.Manufacturer, error) {
	return natsCall[struct{}, []catalog.Manufacturer](ctx, c, OpManufacturers, 0, SubjectManufacturersList, struct{}{})
}

func (c *NATSClient) FetchCategories(ctx context.Context) ([]catalog.Category, error) {
	return natsCall[struct{}, []catalog.Category](ctx, c, OpCategories, 0, SubjectCategoriesList, struct{}{})
}

func natsCall[Req, Resp any](ctx context.Context, c *NATSClient, op string, id int, subject string, req Req) (Resp, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	v, err := natsutil.Call[Req, Resp](ctx, c.nc, subject, req)
	if err == nil {
		return v, nil
	}
	var re *natsutil.RemoteError
	if errors.As(err, &re) {
		fe := &FetchError{Op: op, ID: id, Status: re.Code, Err: errors.New(re.Message)}
		if re.Code == 404 {
			fe.Err = ErrNotFound
		}
		return v, fe
	}
	return v, WrapFetch(op, id, err)
}

// statusError carries a status code back through natsutil.Handle.
type statusError struct {
	code int
	err  error
}

func (e statusError) Error() string { return e.err.Error() }
func (e statusError) Unwrap() error { return e.err }
func (e statusError) Code() int     { return e.code }

func replyErr(err error) error {
	var fe *FetchError
	switch {
	case errors.Is(err, ErrNotFound):
		return statusError{code: 404, err: err}
	case errors.As(err, &fe) && fe.Status != 0:
		return statusError{code: fe.Status, err: err}
	default:
		return statusError{code: 502, err: err}
	}
}

// Serve answers the catalog subjects from src until the returned
// subscriptions are drained.
func Serve(nc *nats.Conn, src Source, log *slog.Logger) ([]*nats.Subscription, error) {
	if log == nil {
		log = slog.Default()
	}
	var subs []*nats.Subscription
	add := func(sub *nats.Subscription, err error) error {
		if err != nil {
			return err
		}
		subs = append(subs, sub)
		return nil
	}

	err := errors.Join(
		add(natsutil.Handle(nc, SubjectCarsList, func(ctx context.Context, _ struct{}) ([]catalog.Car, error) {
			cars, err := src.FetchCars(ctx)
			if err != nil {
				log.Error("serve cars", "err", err)
				return nil, replyErr(err)
			}
			return cars, nil
		})),
		add(natsutil.Handle(nc, SubjectCarGet, func(ctx context.Context, req CarRequest) (catalog.Car, error) {
			car, err := src.FetchCarByID(ctx, req.ID)
			if err != nil {
				return catalog.Car{}, replyErr(err)
			}
			return car, nil
		})),
		add(natsutil.Handle(nc, SubjectManufacturersList, func(ctx context.Context, _ struct{}) ([]catalog.Manufacturer, error) {
			mfrs, err := src.FetchManufacturers(ctx)
			if err != nil {
				log.Error("serve manufacturers", "err", err)
				return nil, replyErr(err)
			}
			return mfrs, nil
		})),
		add(natsutil.Handle(nc, SubjectCategoriesList, func(ctx context.Context, _ struct{}) ([]catalog.Category, error) {
			cats, err := src.FetchCategories(ctx)
			if err != nil {
				log.Error("serve categories", "err", err)
				return nil, replyErr(err)
			}
			return cats, nil
		})),
	)
	if err != nil {
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		return nil, err
	}
	return subs, nil
}

// PublishUpdated announces a catalog change.
func PublishUpdated(ctx context.Context, nc *nats.Conn, ev CatalogUpdated) error {
	return natsutil.Publish(ctx, nc, SubjectUpdated, ev)
}

// OnUpdated registers handler for catalog change announcements.
func OnUpdated(nc *nats.Conn, handler func(context.Context, CatalogUpdated)) (*nats.Subscription, error) {
	return natsutil.Subscribe(nc, SubjectUpdated, handler)
}
