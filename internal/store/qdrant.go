package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	salonerrors "github.com/lanting/salonsearch/internal/errors"
)

// QdrantStore implements VectorStore against a remote Qdrant instance
// over gRPC. It is the backend of choice when the corpus outgrows the
// in-process HNSW graph or when several readers share one index.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dims        int

	mu     sync.Mutex
	closed bool
}

var _ VectorStore = (*QdrantStore)(nil)

// NewQdrantStore connects to Qdrant at addr and ensures the collection
// exists with cosine distance and the given dimensions.
func NewQdrantStore(ctx context.Context, addr, collection string, dims int) (*QdrantStore, error) {
	if dims <= 0 {
		return nil, salonerrors.ValidationError("vector dimensions must be positive", nil)
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, salonerrors.New(salonerrors.ErrCodeProviderUnavailable,
			fmt.Sprintf("dial qdrant %s", addr), err)
	}

	s := &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dims:        dims,
	}

	if err := s.ensureCollection(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return salonerrors.StorageError("list qdrant collections", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return salonerrors.StorageError(
			fmt.Sprintf("create qdrant collection %s", s.collection), err)
	}
	return nil
}

// Add upserts chunk vectors. Chunk IDs ride along as point payload so
// results can be mapped back without a reverse lookup.
func (s *QdrantStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return salonerrors.ValidationError(
			fmt.Sprintf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors)), nil)
	}

	points := make([]*pb.PointStruct, len(ids))
	for i, id := range ids {
		if len(vectors[i]) != s.dims {
			return salonerrors.New(salonerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("expected %d dimensions, got %d", s.dims, len(vectors[i])), nil)
		}
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointUUID(id)}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vectors[i]}},
			},
			Payload: map[string]*pb.Value{
				"chunk_id": {Kind: &pb.Value_StringValue{StringValue: id}},
			},
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return salonerrors.StorageError(fmt.Sprintf("upsert %d points", len(points)), err)
	}
	return nil
}

// Search returns the k nearest chunks with payloads enabled so the
// chunk ID can be recovered from each hit.
func (s *QdrantStore) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != s.dims {
		return nil, salonerrors.New(salonerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("expected %d dimensions, got %d", s.dims, len(query)), nil)
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         query,
		Limit:          uint64(k),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, salonerrors.StorageError("qdrant search", err)
	}

	results := make([]*VectorResult, 0, len(resp.GetResult()))
	for _, hit := range resp.GetResult() {
		chunkID := hit.GetPayload()["chunk_id"].GetStringValue()
		if chunkID == "" {
			continue
		}
		results = append(results, &VectorResult{
			ChunkID: chunkID,
			Score:   hit.GetScore(),
		})
	}
	return results, nil
}

// Delete removes chunk vectors by filtering on the chunk_id payload.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	should := make([]*pb.Condition, len(ids))
	for i, id := range ids {
		should[i] = &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key:   "chunk_id",
					Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: id}},
				},
			},
		}
	}

	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{Should: should},
			},
		},
	})
	if err != nil {
		return salonerrors.StorageError("qdrant delete", err)
	}
	return nil
}

// Count returns the number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, salonerrors.StorageError("qdrant count", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// pointUUID derives a stable UUID-shaped point ID from a chunk ID.
// Qdrant only accepts UUIDs or integers as point IDs.
func pointUUID(id string) string {
	h := sha256.Sum256([]byte(id))
	// Mark as version 4 / variant 10 so Qdrant's validator accepts it.
	h[6] = (h[6] & 0x0f) | 0x40
	h[8] = (h[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}

// Close closes the gRPC connection. Safe to call more than once.
func (s *QdrantStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
