package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ludotheque-admin/internal/domain"
	"ludotheque-admin/internal/repository"
	"ludotheque-admin/internal/store"
)

func setupReferenceService(t *testing.T, tags []domain.Tag) (*miniredis.Miniredis, ReferenceService) {
	mr := miniredis.RunT(t)
	kv := store.NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	svc := NewReferenceService(repository.NewMemoryTagsRepository(tags), kv, zap.NewNop())
	return mr, svc
}

func TestGetTypesCondition_CatalogComplete(t *testing.T) {
	_, svc := setupReferenceService(t, nil)

	types := svc.GetTypesCondition()

	require.Len(t, types, 6)
	codes := make([]string, 0, len(types))
	for _, tc := range types {
		codes = append(codes, tc.Code)
	}
	assert.ElementsMatch(t, []string{
		domain.TypeCommune, domain.TypeQF, domain.TypeAge,
		domain.TypeFidelite, domain.TypeMultiInscriptions, domain.TypeTag,
	}, codes)

	for _, tc := range types {
		assert.NotEmpty(t, tc.Libelle, tc.Code)
		switch tc.Code {
		case domain.TypeAge, domain.TypeFidelite, domain.TypeMultiInscriptions:
			assert.Contains(t, tc.Operateurs, domain.OpEntre, tc.Code)
		case domain.TypeTag:
			assert.ElementsMatch(t, []string{domain.ModeContient, domain.ModeNeContientPas}, tc.Modes)
		}
	}
}

func TestGetTagsDisponibles_CachesCatalog(t *testing.T) {
	mr, svc := setupReferenceService(t, []domain.Tag{
		{TagID: "tag-1", TagName: "etudiant"},
		{TagID: "tag-2", TagName: "demandeur_emploi", StructureID: "structure-1"},
	})
	ctx := context.Background()

	tags, err := svc.GetTagsDisponibles(ctx, "structure-1")
	require.NoError(t, err)
	require.Len(t, tags, 2)

	// the catalog is now cached under the structure-scoped key
	cached, err := mr.Get("tags:catalog:structure-1")
	require.NoError(t, err)
	var fromCache []domain.Tag
	require.NoError(t, json.Unmarshal([]byte(cached), &fromCache))
	assert.Equal(t, tags, fromCache)
}

func TestGetTagsDisponibles_ServesFromCache(t *testing.T) {
	mr, svc := setupReferenceService(t, []domain.Tag{
		{TagID: "tag-1", TagName: "etudiant"},
	})
	ctx := context.Background()

	// pre-seed the cache with a different catalog: it must win over the repo
	seeded := []domain.Tag{{TagID: "tag-cached", TagName: "senior"}}
	payload, err := json.Marshal(seeded)
	require.NoError(t, err)
	require.NoError(t, mr.Set("tags:catalog:_all", string(payload)))

	tags, err := svc.GetTagsDisponibles(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, seeded, tags)
}

func TestGetTagsDisponibles_CacheExpiryFallsBackToRepo(t *testing.T) {
	mr, svc := setupReferenceService(t, []domain.Tag{
		{TagID: "tag-1", TagName: "etudiant"},
	})
	ctx := context.Background()

	_, err := svc.GetTagsDisponibles(ctx, "")
	require.NoError(t, err)

	mr.FastForward(tagsCacheTTL + 1)
	require.False(t, mr.Exists("tags:catalog:_all"))

	tags, err := svc.GetTagsDisponibles(ctx, "")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "etudiant", tags[0].TagName)
}

func TestGetTagsDisponibles_NilCacheStillWorks(t *testing.T) {
	svc := NewReferenceService(repository.NewMemoryTagsRepository([]domain.Tag{
		{TagID: "tag-1", TagName: "etudiant"},
	}), nil, zap.NewNop())

	tags, err := svc.GetTagsDisponibles(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tags, 1)
}
