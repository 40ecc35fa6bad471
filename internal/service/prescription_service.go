// prescription_service.go
package service

import (
	"context"
	"errors"
	"mime/multipart"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medshop-backend/internal/apperror"
	"medshop-backend/internal/model"
	"medshop-backend/internal/repository"
	"medshop-backend/internal/status"
	"medshop-backend/internal/storage"
)

type PrescriptionService struct {
	prescriptions PrescriptionRepository
	files         storage.Storage
	events        EventPublisher
	now           func() time.Time
}

func NewPrescriptionService(prescriptions PrescriptionRepository, files storage.Storage, events EventPublisher) *PrescriptionService {
	return &PrescriptionService{
		prescriptions: prescriptions,
		files:         files,
		events:        events,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Upload guarda el archivo y crea la receta en estado submitted, con
// historial y timeline ya inicializados (nada queda nil).
func (s *PrescriptionService) Upload(ctx context.Context, userID primitive.ObjectID, file *multipart.FileHeader, note string) (*model.Prescription, error) {
	if file == nil {
		return nil, apperror.ErrValidation.WithFields(map[string]string{"prescription": "file is required"})
	}
	ref, err := s.files.Store(ctx, file, "prescriptions")
	if err != nil {
		return nil, apperror.ErrValidation.WithMessage("could not store prescription file")
	}

	now := s.now()
	p := &model.Prescription{
		UserID: userID,
		File:   *ref,
		Status: status.PrescriptionSubmitted,
		Note:   note,
	}
	p.StatusHistory, p.Timeline = status.Initial(status.PrescriptionSubmitted, userID.Hex(), "Receta recibida", now)

	if err := s.prescriptions.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PrescriptionService) Mine(ctx context.Context, userID primitive.ObjectID) ([]*model.Prescription, error) {
	return s.prescriptions.FindByUser(ctx, userID)
}

func (s *PrescriptionService) Get(ctx context.Context, requester primitive.ObjectID, isAdmin bool, id string) (*model.Prescription, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && p.UserID != requester {
		return nil, apperror.ErrForbidden.WithMessage("you cannot view another user's prescription")
	}
	return p, nil
}

func (s *PrescriptionService) AdminList(ctx context.Context) ([]*model.Prescription, error) {
	return s.prescriptions.FindAll(ctx)
}

func (s *PrescriptionService) UpdateStatus(ctx context.Context, id, newStatus, note, actorID string) (*model.Prescription, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	update, err := status.Transition(status.Prescriptions, newStatus, actorID, note, s.now())
	if errors.Is(err, status.ErrInvalidStatus) {
		return nil, apperror.ErrValidation.WithMessage(err.Error())
	}
	if err != nil {
		return nil, err
	}
	if err := s.prescriptions.ApplyTransition(ctx, p.ID, update); err != nil {
		return nil, err
	}

	s.events.StatusChanged(ctx, "prescription", p.ID.Hex(), newStatus, actorID)
	return s.prescriptions.FindByID(ctx, p.ID)
}

func (s *PrescriptionService) find(ctx context.Context, id string) (*model.Prescription, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.ErrValidation.WithFields(map[string]string{"id": "invalid id"})
	}
	p, err := s.prescriptions.FindByID(ctx, oid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrNotFound.WithMessage("prescription not found")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
