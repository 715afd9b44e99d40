package dataset

import (
	"context"
	"os"

	"github.com/friconhq/fricon/internal/batch"
	"github.com/friconhq/fricon/internal/model"
)

// RecoverOnStartup reconciles every Pending and Writing row against the
// filesystem before the manager accepts any RPCs. It is idempotent:
// running it twice in a row on an already-recovered workspace is a no-op.
func (m *Manager) RecoverOnStartup(ctx context.Context) error {
	if err := m.recoverPending(ctx); err != nil {
		return err
	}
	return m.recoverWriting(ctx)
}

// recoverPending aborts every row that never got as far as Write: no
// writer was ever opened, so the directory is empty or absent.
func (m *Manager) recoverPending(ctx context.Context) error {
	rows, err := m.store.ListByStatus(ctx, model.StatusPending)
	if err != nil {
		return err
	}
	for _, ds := range rows {
		dir := m.ws.DatasetDir(ds.UUID)
		if err := os.RemoveAll(dir); err != nil {
			m.log.Warn().Err(err).Int64("dataset_id", ds.ID).Msg("failed to remove pending dataset directory during recovery")
		}
		if err := m.store.ForceStatus(ctx, ds.ID, model.StatusAborted); err != nil {
			return err
		}
		m.log.Info().Int64("dataset_id", ds.ID).Msg("recovered pending dataset as aborted")
	}
	return nil
}

// recoverWriting reconciles every row left in Writing: the writer that was
// producing it was interrupted (process crash, not graceful shutdown). If
// a finalized sidecar is present, it is authoritative and the row is
// Completed instead; otherwise the row is Aborted and any partial chunk
// files are removed.
func (m *Manager) recoverWriting(ctx context.Context) error {
	rows, err := m.store.ListByStatus(ctx, model.StatusWriting)
	if err != nil {
		return err
	}
	for _, ds := range rows {
		dir := m.ws.DatasetDir(ds.UUID)
		sidecar, sidecarErr := batch.ReadSidecar(dir)

		if sidecarErr == nil && sidecar.Status == string(model.StatusCompleted) {
			if err := m.store.ForceStatus(ctx, ds.ID, model.StatusCompleted); err != nil {
				return err
			}
			m.log.Info().Int64("dataset_id", ds.ID).Msg("recovered writing dataset as completed from finalized sidecar")
			continue
		}

		if err := clearDirContents(dir); err != nil {
			m.log.Warn().Err(err).Int64("dataset_id", ds.ID).Msg("failed to clear dataset directory during recovery")
		}
		if err := m.store.ForceStatus(ctx, ds.ID, model.StatusAborted); err != nil {
			return err
		}
		m.log.Info().Int64("dataset_id", ds.ID).Msg("recovered writing dataset as aborted")
	}
	return nil
}
