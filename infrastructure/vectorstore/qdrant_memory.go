package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"

	"self-evolving-ai/domain"
)

// QdrantMemory implements the domain.VectorMemory interface using Qdrant.
type QdrantMemory struct {
	points         qdrant.PointsClient
	collectionName string
	embedder       domain.EmbeddingClient
	logger         *zap.Logger
}

// NewQdrantMemory connects to Qdrant at addr and ensures the
// collection exists, sized to the embedder's vector dimensions.
func NewQdrantMemory(addr, collectionName string, embedder domain.EmbeddingClient, logger *zap.Logger) (*QdrantMemory, error) {
	if addr == "" {
		addr = "localhost:6334"
	}
	if collectionName == "" {
		collectionName = "knowledge"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to Qdrant: %w", err)
	}

	m := &QdrantMemory{
		points:         qdrant.NewPointsClient(conn),
		collectionName: collectionName,
		embedder:       embedder,
		logger:         logger,
	}

	if err := m.ensureCollectionExists(context.Background(), qdrant.NewCollectionsClient(conn)); err != nil {
		return nil, fmt.Errorf("failed to ensure collection exists: %w", err)
	}

	return m, nil
}

// ensureCollectionExists checks if the collection exists and creates it if it doesn't.
func (m *QdrantMemory) ensureCollectionExists(ctx context.Context, collections qdrant.CollectionsClient) error {
	_, err := collections.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: m.collectionName,
	})
	if err == nil {
		return nil
	}

	m.logger.Info("creating collection", zap.String("collection", m.collectionName))

	_, err = collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: m.collectionName,
		VectorsConfig: &qdrant.VectorsConfig{Config: &qdrant.VectorsConfig_Params{Params: &qdrant.VectorParams{
			Size:     m.embedder.Dimensions(),
			Distance: qdrant.Distance_Cosine,
		}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// Add embeds the item's question/answer document and upserts it as a
// single point. It returns the point ID.
func (m *QdrantMemory) Add(ctx context.Context, item domain.KnowledgeItem) (string, error) {
	embeddings, err := m.embedder.GenerateEmbeddings(ctx, []string{item.Document()})
	if err != nil {
		return "", fmt.Errorf("embed knowledge item: %w", err)
	}
	if len(embeddings) != 1 {
		return "", fmt.Errorf("expected 1 embedding, got %d", len(embeddings))
	}

	pointID := item.ID
	if pointID == "" {
		u, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("failed to generate UUID: %w", err)
		}
		pointID = u.String()
	}

	timestamp := item.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	payload := map[string]*qdrant.Value{
		"question":  {Kind: &qdrant.Value_StringValue{StringValue: item.Question}},
		"answer":    {Kind: &qdrant.Value_StringValue{StringValue: item.Answer}},
		"source":    {Kind: &qdrant.Value_StringValue{StringValue: item.Source}},
		"timestamp": {Kind: &qdrant.Value_StringValue{StringValue: timestamp.Format(time.RFC3339)}},
	}

	_, err = m.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: m.collectionName,
		Points: []*qdrant.PointStruct{
			{
				Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: pointID}},
				Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: embeddings[0]}}},
				Payload: payload,
			},
		},
		Wait: proto.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upsert point to Qdrant: %w", err)
	}

	return pointID, nil
}

// Search embeds the query and returns the k most similar knowledge items.
func (m *QdrantMemory) Search(ctx context.Context, query string, k int) ([]domain.KnowledgeItem, error) {
	if k < 1 {
		k = 1
	}

	embeddings, err := m.embedder.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(embeddings))
	}

	searchResult, err := m.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: m.collectionName,
		Vector:         embeddings[0],
		Limit:          uint64(k),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points in Qdrant: %w", err)
	}

	items := make([]domain.KnowledgeItem, 0, len(searchResult.GetResult()))
	for _, hit := range searchResult.GetResult() {
		payload := hit.GetPayload()
		if payload == nil {
			continue
		}

		pointID := ""
		if hit.GetId() != nil {
			if uuidVal, ok := hit.GetId().GetPointIdOptions().(*qdrant.PointId_Uuid); ok {
				pointID = uuidVal.Uuid
			}
		}

		var timestamp time.Time
		if raw := payload["timestamp"].GetStringValue(); raw != "" {
			if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
				timestamp = parsed
			}
		}

		items = append(items, domain.KnowledgeItem{
			ID:        pointID,
			Question:  payload["question"].GetStringValue(),
			Answer:    payload["answer"].GetStringValue(),
			Source:    payload["source"].GetStringValue(),
			Timestamp: timestamp,
		})
	}

	return items, nil
}

// Count returns the exact number of stored knowledge items.
func (m *QdrantMemory) Count(ctx context.Context) (uint64, error) {
	resp, err := m.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: m.collectionName,
		Exact:          proto.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points in Qdrant: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}
