package similar

import (
	"context"
	"errors"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/WessleyAI/carviewer/engine/catalog"
)

// ErrNoFeatures is returned when a car has nothing to compare on.
var ErrNoFeatures = errors.New("similar: car has no comparable features")

// PointsAPI is the subset of the Qdrant points client the index uses.
type PointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// CollectionsAPI is the subset of the Qdrant collections client the index uses.
type CollectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Match is one neighbour.
type Match struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Score float32 `json:"score"`
}

// Index owns the Qdrant collection holding car vectors.
type Index struct {
	conn        *grpc.ClientConn
	points      PointsAPI
	collections CollectionsAPI
	collection  string
}

// New connects to Qdrant at the given gRPC address.
func New(addr, collection string) (*Index, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("similar: dial qdrant %s: %w", addr, err)
	}
	return &Index{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients builds an Index on caller-supplied clients.
func NewWithClients(points PointsAPI, collections CollectionsAPI, collection string) *Index {
	return &Index{points: points, collections: collections, collection: collection}
}

// Close closes the gRPC connection, if the index owns one.
func (x *Index) Close() error {
	if x.conn == nil {
		return nil
	}
	return x.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (x *Index) EnsureCollection(ctx context.Context) error {
	list, err := x.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("similar: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == x.collection {
			return nil
		}
	}
	_, err = x.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{Size: Dims, Distance: pb.Distance_Cosine},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("similar: create collection %s: %w", x.collection, err)
	}
	return nil
}

// Reset drops the collection.
func (x *Index) Reset(ctx context.Context) error {
	if _, err := x.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: x.collection}); err != nil {
		return fmt.Errorf("similar: delete collection %s: %w", x.collection, err)
	}
	return nil
}

func pointID(id int) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(id)}}
}

// Upsert stores one point per car, keyed by car id. Cars without features
// are skipped; the number stored is returned.
func (x *Index) Upsert(ctx context.Context, cars []catalog.Car) (int, error) {
	points := make([]*pb.PointStruct, 0, len(cars))
	for _, c := range cars {
		vec := Vector(c)
		if isZero(vec) {
			continue
		}
		points = append(points, &pb.PointStruct{
			Id: pointID(c.ID),
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vec}},
			},
			Payload: map[string]*pb.Value{
				"name":            {Kind: &pb.Value_StringValue{StringValue: c.Name}},
				"manufacturer_id": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(c.ManufacturerID)}},
				"category_id":     {Kind: &pb.Value_IntegerValue{IntegerValue: int64(c.CategoryID)}},
			},
		})
	}
	if len(points) == 0 {
		return 0, nil
	}
	wait := true
	_, err := x.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: x.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("similar: upsert %d points: %w", len(points), err)
	}
	return len(points), nil
}

// Similar returns up to k cars closest to car, best first, never car itself.
func (x *Index) Similar(ctx context.Context, car catalog.Car, k int) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}
	vec := Vector(car)
	if isZero(vec) {
		return nil, ErrNoFeatures
	}
	resp, err := x.points.Search(ctx, &pb.SearchPoints{
		CollectionName: x.collection,
		Vector:         vec,
		Limit:          uint64(k + 1),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("similar: search: %w", err)
	}

	out := make([]Match, 0, k)
	for _, r := range resp.GetResult() {
		id := int(r.GetId().GetNum())
		if id == car.ID {
			continue
		}
		if len(out) == k {
			break
		}
		out = append(out, Match{
			ID:    id,
			Name:  r.GetPayload()["name"].GetStringValue(),
			Score: r.GetScore(),
		})
	}
	return out, nil
}

func isZero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
