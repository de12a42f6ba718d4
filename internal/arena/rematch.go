package arena

import (
	"time"

	"go.uber.org/zap"

	"github.com/kapu/connect4-arena-go/internal/board"
	"github.com/kapu/connect4-arena-go/internal/obslog"
	"github.com/kapu/connect4-arena-go/pkg/c4dto"
)

// RematchOffer registers the caller's wish for a rematch on a concluded
// session. The offer counts as the requester's acceptance; the opponent is
// notified and the decision window starts (or restarts). Fails when the
// opponent has no live transport anymore, bots included.
func (m *Manager) RematchOffer(gameID, token string, from Transport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.sessions[gameID]
	if sess == nil {
		return ErrUnknownSession
	}
	idx := m.resolveSeatLocked(sess, token, from)
	if idx == 0 {
		return ErrUnknownPlayer
	}
	if sess.Game.Status == board.StatusOngoing {
		return ErrStillOngoing
	}
	opp := sess.seat(otherIdx(idx))
	if opp.Transport == nil {
		return ErrOpponentGone
	}

	m.ensureNegotiationLocked(sess)
	m.armRematchTimerLocked(sess)
	accepted := true
	sess.rematch.responses[idx-1] = &accepted

	me := sess.seat(idx)
	m.sendToSeat(opp, c4dto.RematchOffer{
		Type:   c4dto.TypeRematchOffer,
		From:   me.Username,
		GameID: sess.ID,
	})
	m.sendToSeat(me, c4dto.Ack{Type: c4dto.TypeRematchOfferSent, GameID: sess.ID})
	obslog.L().Info("rematch_offer",
		zap.String("game_id", sess.ID), zap.String("from", me.Username))

	if sess.rematch.decided() {
		m.resolveRematchLocked(sess)
	}
	return nil
}

// RematchRespond records the caller's accept/decline decision. Once both
// seats have answered (or the window expired) the negotiation resolves.
func (m *Manager) RematchRespond(gameID, token string, from Transport, accept bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.sessions[gameID]
	if sess == nil {
		return ErrUnknownSession
	}
	idx := m.resolveSeatLocked(sess, token, from)
	if idx == 0 {
		return ErrUnknownPlayer
	}

	m.ensureNegotiationLocked(sess)
	a := accept
	sess.rematch.responses[idx-1] = &a

	me := sess.seat(idx)
	m.sendToSeat(sess.seat(otherIdx(idx)), c4dto.RematchStatus{
		Type:     c4dto.TypeRematchStatus,
		From:     me.Username,
		Accepted: accept,
	})
	m.sendToSeat(me, c4dto.Ack{Type: c4dto.TypeRematchResponseAck, GameID: sess.ID})

	if sess.rematch.decided() {
		m.resolveRematchLocked(sess)
	}
	return nil
}

// ensureNegotiationLocked lazily creates the negotiation record with its
// window armed. A response arriving before any offer still opens the window.
func (m *Manager) ensureNegotiationLocked(sess *Session) {
	if sess.rematch != nil {
		return
	}
	sess.rematch = &negotiation{}
	m.armRematchTimerLocked(sess)
}

// armRematchTimerLocked (re)starts the decision window, superseding any
// running timer so a repeated offer cannot double-fire.
func (m *Manager) armRematchTimerLocked(sess *Session) {
	neg := sess.rematch
	if neg.timer != nil {
		neg.timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(m.opts.RematchWindow, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.sessions[sess.ID] != sess || sess.rematch != neg || neg.timer != timer {
			return
		}
		// a missing answer counts as a decline
		m.resolveRematchLocked(sess)
	})
	neg.timer = timer
}

// resolveRematchLocked concludes the negotiation: both-accepted spawns the
// follow-up session after a short delay, anything else is a decline. The old
// session is torn down either way.
func (m *Manager) resolveRematchLocked(sess *Session) {
	neg := sess.rematch
	if neg == nil {
		return
	}
	if neg.timer != nil {
		neg.timer.Stop()
	}
	sess.rematch = nil

	accepted := neg.bothAccepted()
	m.broadcast(sess, c4dto.RematchResult{
		Type:     c4dto.TypeRematchResult,
		GameID:   sess.ID,
		Accepted: accepted,
	})
	obslog.L().Info("rematch_resolve",
		zap.String("game_id", sess.ID), zap.Bool("accepted", accepted))

	if accepted {
		// same identities, same seats, current transports
		a := SeatSpec{Username: sess.Seats[0].Username, Transport: sess.Seats[0].Transport, IsBot: sess.Seats[0].IsBot}
		b := SeatSpec{Username: sess.Seats[1].Username, Transport: sess.Seats[1].Transport, IsBot: sess.Seats[1].IsBot}
		m.destroySessionLocked(sess)
		time.AfterFunc(m.opts.RematchStartDelay, func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.createSessionLocked(a, b)
		})
		return
	}
	m.destroySessionLocked(sess)
}
