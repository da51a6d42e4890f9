package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestWithOrgID_OrgIDFromCtx(t *testing.T) {
	orgID := uuid.New()
	ctx := WithOrgID(context.Background(), orgID)

	got, err := OrgIDFromCtx(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != orgID {
		t.Fatalf("expected %v, got %v", orgID, got)
	}
}

func TestOrgIDFromCtx_EmptyContext(t *testing.T) {
	_, err := OrgIDFromCtx(context.Background())
	if !errors.Is(err, ErrOrgIDNotFound) {
		t.Fatalf("expected ErrOrgIDNotFound, got %v", err)
	}
}

func TestOrgIDFromCtx_NilUUID(t *testing.T) {
	ctx := WithOrgID(context.Background(), uuid.Nil)
	_, err := OrgIDFromCtx(ctx)
	if !errors.Is(err, ErrOrgIDNotFound) {
		t.Fatalf("expected ErrOrgIDNotFound for uuid.Nil, got %v", err)
	}
}

func TestWithActorID_ActorIDFromCtx(t *testing.T) {
	actorID := uuid.New()
	ctx := WithActorID(context.Background(), actorID)

	got, err := ActorIDFromCtx(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != actorID {
		t.Fatalf("expected %v, got %v", actorID, got)
	}
}

func TestActorIDFromCtx_EmptyContext(t *testing.T) {
	_, err := ActorIDFromCtx(context.Background())
	if !errors.Is(err, ErrActorIDNotFound) {
		t.Fatalf("expected ErrActorIDNotFound, got %v", err)
	}
}

func TestOrgAndActorIDs_Independent(t *testing.T) {
	orgID := uuid.New()
	actorID := uuid.New()

	ctx := WithActorID(WithOrgID(context.Background(), orgID), actorID)

	gotOrg, _ := OrgIDFromCtx(ctx)
	gotActor, _ := ActorIDFromCtx(ctx)

	if gotOrg != orgID {
		t.Fatalf("expected org %v, got %v", orgID, gotOrg)
	}
	if gotActor != actorID {
		t.Fatalf("expected actor %v, got %v", actorID, gotActor)
	}
}
