package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-shopper/internal/planner"
	"meal-shopper/internal/pricing"
)

func samplePlan() planner.Plan {
	return planner.Plan{
		Meals: []planner.Meal{{
			Title:       "Cepelinai",
			Description: "Tradiciniai",
			Recipe:      []string{"Tarkuoti bulves", "Virti"},
			Ingredients: []string{"bulvės 2kg", "kiauliena 500g"},
			KeyProtein:  "kiauliena",
		}},
		ShoppingList: []string{"bulvės 2kg", "kiauliena 500g"},
	}
}

// runStoreContract exercises behavior every Store implementation shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		store := newStore(t)
		s := New("lithuanian classics", samplePlan(), now)
		require.NoError(t, store.Put(ctx, s))

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, "lithuanian classics", got.Preferences)
		assert.Equal(t, s.MealPlan, got.MealPlan)
		assert.Equal(t, s.ShoppingList, got.ShoppingList)
		assert.Equal(t, StatusPlanReady, got.Status)
		assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		store := newStore(t)
		s := New("x", samplePlan(), now)
		require.NoError(t, store.Put(ctx, s))

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		got.ShoppingList[0] = "mutated"
		got.Status = StatusDecisionMade

		again, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "bulvės 2kg", again.ShoppingList[0])
		assert.Equal(t, StatusPlanReady, again.Status)
	})

	t.Run("Missing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "does-not-exist"), ErrNotFound)
		assert.ErrorIs(t, store.Update(ctx, "does-not-exist", func(*Session) error { return nil }), ErrNotFound)
	})

	t.Run("DeleteAndCount", func(t *testing.T) {
		store := newStore(t)
		a, b := New("a", samplePlan(), now), New("b", samplePlan(), now)
		require.NoError(t, store.Put(ctx, a))
		require.NoError(t, store.Put(ctx, b))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, store.Delete(ctx, a.ID))
		n, err = store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = store.Get(ctx, a.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UpdateCommitsOnSuccess", func(t *testing.T) {
		store := newStore(t)
		s := New("x", samplePlan(), now)
		require.NoError(t, store.Put(ctx, s))

		err := store.Update(ctx, s.ID, func(s *Session) error {
			return s.Advance(StatusPricesReceived, now.Add(time.Minute))
		})
		require.NoError(t, err)

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPricesReceived, got.Status)
		assert.True(t, got.UpdatedAt.Equal(now.Add(time.Minute)))
	})

	t.Run("UpdateRejectsInconsistentSession", func(t *testing.T) {
		store := newStore(t)
		s := New("x", samplePlan(), now)
		require.NoError(t, store.Put(ctx, s))

		err := store.Update(ctx, s.ID, func(s *Session) error {
			s.Decision = &pricing.Decision{RecommendedStore: "A"}
			return nil
		})
		require.Error(t, err)

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Decision)
		assert.Equal(t, StatusPlanReady, got.Status)
	})

	t.Run("PutRejectsInconsistentSession", func(t *testing.T) {
		store := newStore(t)
		s := New("x", samplePlan(), now)
		s.PriceReport = &PriceReport{ReceivedAt: now}
		assert.Error(t, store.Put(ctx, s))

		_, err := store.Get(ctx, s.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UpdateDiscardsOnError", func(t *testing.T) {
		store := newStore(t)
		s := New("x", samplePlan(), now)
		require.NoError(t, store.Put(ctx, s))

		boom := errors.New("boom")
		err := store.Update(ctx, s.ID, func(s *Session) error {
			s.Status = StatusDecisionMade
			s.ShoppingList = nil
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPlanReady, got.Status)
		assert.Len(t, got.ShoppingList, 2)
	})

	t.Run("ConcurrentUpdatesSerialize", func(t *testing.T) {
		store := newStore(t)
		s := New("x", planner.Plan{}, now)
		require.NoError(t, store.Put(ctx, s))

		const writers = 20
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- store.Update(ctx, s.ID, func(s *Session) error {
					s.ShoppingList = append(s.ShoppingList, fmt.Sprintf("item-%d", i))
					return nil
				})
			}(i)
		}
		wg.Wait()
		close(errs)

		committed := 0
		for err := range errs {
			if err == nil {
				committed++
			}
		}
		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Len(t, got.ShoppingList, committed)
		assert.Positive(t, committed)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })

	t.Run("ConcurrentUpdatesAllCommit", func(t *testing.T) {
		ctx := context.Background()
		store := NewMemoryStore()
		s := New("x", planner.Plan{}, time.Now())
		require.NoError(t, store.Put(ctx, s))

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.Update(ctx, s.ID, func(s *Session) error {
					s.ShoppingList = append(s.ShoppingList, "x")
					return nil
				}))
			}()
		}
		wg.Wait()

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Len(t, got.ShoppingList, 50)
	})

	t.Run("CancelledUpdateDoesNotCommit", func(t *testing.T) {
		store := NewMemoryStore()
		s := New("x", samplePlan(), time.Now())
		require.NoError(t, store.Put(context.Background(), s))

		ctx, cancel := context.WithCancel(context.Background())
		err := store.Update(ctx, s.ID, func(s *Session) error {
			s.Status = StatusPricesReceived
			cancel()
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)

		got, err := store.Get(context.Background(), s.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPlanReady, got.Status)
	})
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping redis session store tests")
	}

	runStoreContract(t, func(t *testing.T) Store {
		ctx := context.Background()
		client, err := NewRedisClient(ctx, url)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		require.NoError(t, client.FlushDB(ctx).Err())
		return NewRedisStore(client, time.Minute)
	})
}
