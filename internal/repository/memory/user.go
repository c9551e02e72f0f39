package memory

import (
	"context"

	"github.com/google/uuid"

	"ridepool/backend/internal/models"
	"ridepool/backend/internal/repository"
)

type userStore struct {
	s *Store
}

func (u *userStore) Create(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	defer u.s.lock()()

	for _, existing := range u.s.st.users {
		if existing.Email == email {
			return nil, repository.ErrEmailTaken
		}
	}

	created := models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    u.s.stamp(),
	}
	u.s.st.users[created.ID] = created
	u.s.st.track(created.ID)
	return &created, nil
}

func (u *userStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer u.s.lock()()

	user, ok := u.s.st.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (u *userStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer u.s.lock()()

	for _, user := range u.s.st.users {
		if user.Email == email {
			out := user
			return &out, nil
		}
	}
	return nil, nil
}
