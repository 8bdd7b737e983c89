// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking exposes the staking engine over REST.
package staking

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	pkgerrors "github.com/pkg/errors"

	"github.com/plumenetwork/plume/api/restutil"
	"github.com/plumenetwork/plume/plume"
	"github.com/plumenetwork/plume/staking"
	"github.com/plumenetwork/plume/staking/registry"
	"github.com/plumenetwork/plume/staking/reverts"
)

type Staking struct {
	minter *staking.Minter
	now    func() uint64
}

func New(minter *staking.Minter) *Staking {
	return &Staking{
		minter: minter,
		now:    func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// convertErr maps domain sentinels to HTTP statuses. Unmapped errors fall
// through as 500.
func convertErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reverts.ErrZeroAmount),
		errors.Is(err, reverts.ErrBelowMinStake),
		errors.Is(err, reverts.ErrLockupNotAllowed),
		errors.Is(err, reverts.ErrAutoCompoundPeriod),
		errors.Is(err, reverts.ErrInvalidConfig):
		return restutil.BadRequest(err)
	case errors.Is(err, reverts.ErrUnknownValidator),
		errors.Is(err, reverts.ErrUnknownRequest):
		return restutil.NotFound(err)
	case errors.Is(err, reverts.ErrUnauthorized):
		return restutil.Forbidden(err)
	case errors.Is(err, reverts.ErrActiveStakeExists),
		errors.Is(err, reverts.ErrNoActiveStake),
		errors.Is(err, reverts.ErrActiveWithdrawalExists),
		errors.Is(err, reverts.ErrNoPendingWithdrawal),
		errors.Is(err, reverts.ErrCooldownActive),
		errors.Is(err, reverts.ErrInsufficientBalance),
		errors.Is(err, reverts.ErrShortenedMaturity),
		errors.Is(err, reverts.ErrRequestNotReady),
		errors.Is(err, reverts.ErrInsufficientLiquidity),
		errors.Is(err, reverts.ErrInsufficientRewardFunds),
		errors.Is(err, reverts.ErrNoBucketCapacity),
		errors.Is(err, reverts.ErrInstantPaused),
		errors.Is(err, reverts.ErrInstantCapExceeded),
		errors.Is(err, reverts.ErrReentrancy):
		return restutil.Conflict(err)
	default:
		return err
	}
}

// nowParam reads an optional unix-seconds override from the query, falling
// back to the wall clock.
func (s *Staking) nowParam(req *http.Request) (uint64, error) {
	raw := req.URL.Query().Get("now")
	if raw == "" {
		return s.now(), nil
	}
	now, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, restutil.BadRequest(pkgerrors.WithMessage(err, "now"))
	}
	return now, nil
}

func (s *Staking) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAddr(mux.Vars(req)["address"])
	if err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "address"))
	}
	acc, err := s.minter.Account(addr)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, convertAccount(acc))
}

func (s *Staking) handleGetRewards(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAddr(mux.Vars(req)["address"])
	if err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "address"))
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	pending, err := s.minter.PendingRewards(addr, now)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{"pending": (*math.HexOrDecimal256)(pending)})
}

func (s *Staking) handleGetValidators(w http.ResponseWriter, _ *http.Request) error {
	all, err := s.minter.Validators()
	if err != nil {
		return convertErr(err)
	}
	out := make([]*Validator, 0, len(all))
	for _, v := range all {
		out = append(out, convertValidator(v))
	}
	return restutil.WriteJSON(w, out)
}

func (s *Staking) validatorID(req *http.Request) (registry.ID, error) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return 0, restutil.BadRequest(pkgerrors.WithMessage(err, "id"))
	}
	return registry.ID(id), nil
}

func (s *Staking) handleGetValidator(w http.ResponseWriter, req *http.Request) error {
	id, err := s.validatorID(req)
	if err != nil {
		return err
	}
	v, err := s.minter.Validator(id)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, convertValidator(v))
}

func (s *Staking) handleGetBuckets(w http.ResponseWriter, req *http.Request) error {
	id, err := s.validatorID(req)
	if err != nil {
		return err
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	sum, err := s.minter.BucketSummary(id, now)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, convertSummary(sum))
}

func (s *Staking) handleGetRequest(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "id"))
	}
	r, err := s.minter.Request(id)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, convertRequest(r))
}

func (s *Staking) handleGetPending(w http.ResponseWriter, _ *http.Request) error {
	ids, err := s.minter.PendingRequests()
	if err != nil {
		return convertErr(err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	return restutil.WriteJSON(w, ids)
}

func (s *Staking) handleGetBuffer(w http.ResponseWriter, _ *http.Request) error {
	available, outstanding, instant, err := s.minter.BufferState()
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, &BufferState{
		Available:        (*math.HexOrDecimal256)(available),
		TotalOutstanding: (*math.HexOrDecimal256)(outstanding),
		InstantUnstaked:  (*math.HexOrDecimal256)(instant),
	})
}

func (s *Staking) handleGetTotals(w http.ResponseWriter, req *http.Request) error {
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	info, err := s.minter.StakeInfo(now)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{
		"staked":  (*math.HexOrDecimal256)(info.Staked),
		"cooling": (*math.HexOrDecimal256)(info.Cooling),
		"parked":  (*math.HexOrDecimal256)(info.Parked),
	})
}

func (s *Staking) handleStake(w http.ResponseWriter, req *http.Request) error {
	var body StakeRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "body"))
	}
	user, err := parseAddr(body.User)
	if err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "user"))
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	if err := s.minter.Stake(
		user, registry.ID(body.Validator), body.LockDuration,
		amountOf(body.Amount), body.AutoCompoundPeriod, now,
	); err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{"ok": true})
}

func (s *Staking) amountBody(req *http.Request) (addr plume.Address, amount *big.Int, err error) {
	var body AmountRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return addr, nil, restutil.BadRequest(pkgerrors.WithMessage(err, "body"))
	}
	user, err := parseAddr(body.User)
	if err != nil {
		return addr, nil, restutil.BadRequest(pkgerrors.WithMessage(err, "user"))
	}
	return user, amountOf(body.Amount), nil
}

func (s *Staking) handlePark(w http.ResponseWriter, req *http.Request) error {
	user, amount, err := s.amountBody(req)
	if err != nil {
		return err
	}
	if err := s.minter.Park(user, amount); err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{"ok": true})
}

func (s *Staking) handleWithdrawParked(w http.ResponseWriter, req *http.Request) error {
	user, amount, err := s.amountBody(req)
	if err != nil {
		return err
	}
	if err := s.minter.WithdrawParked(user, amount); err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{"ok": true})
}

func (s *Staking) handleExtendAmount(w http.ResponseWriter, req *http.Request) error {
	user, amount, err := s.amountBody(req)
	if err != nil {
		return err
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	if err := s.minter.ExtendAmount(user, amount, now); err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{"ok": true})
}

func (s *Staking) handleExtendTime(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		User         string `json:"user"`
		LockDuration uint64 `json:"lockDuration"`
	}
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "body"))
	}
	user, err := parseAddr(body.User)
	if err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "user"))
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	if err := s.minter.ExtendTime(user, body.LockDuration, now); err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{"ok": true})
}

func (s *Staking) handleRequestUnstake(w http.ResponseWriter, req *http.Request) error {
	user, amount, err := s.amountBody(req)
	if err != nil {
		return err
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	id, readyTime, err := s.minter.RequestUnstake(user, amount, now)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{"id": id, "readyTime": readyTime})
}

func (s *Staking) handleInstantUnstake(w http.ResponseWriter, req *http.Request) error {
	user, amount, err := s.amountBody(req)
	if err != nil {
		return err
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	net, err := s.minter.InstantUnstake(user, amount, now)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{"net": (*math.HexOrDecimal256)(net)})
}

func (s *Staking) userBody(req *http.Request) (plume.Address, error) {
	var body UserRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return plume.Address{}, restutil.BadRequest(pkgerrors.WithMessage(err, "body"))
	}
	user, err := parseAddr(body.User)
	if err != nil {
		return plume.Address{}, restutil.BadRequest(pkgerrors.WithMessage(err, "user"))
	}
	return user, nil
}

func (s *Staking) handleUnstake(w http.ResponseWriter, req *http.Request) error {
	user, err := s.userBody(req)
	if err != nil {
		return err
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	net, err := s.minter.Unstake(user, now)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{"net": (*math.HexOrDecimal256)(net)})
}

func (s *Staking) handleClaimRewards(w http.ResponseWriter, req *http.Request) error {
	user, err := s.userBody(req)
	if err != nil {
		return err
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	paidPUSD, paidPLUME, err := s.minter.ClaimRewards(user, now)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{
		"paidPUSD":  (*math.HexOrDecimal256)(paidPUSD),
		"paidPLUME": (*math.HexOrDecimal256)(paidPLUME),
	})
}

func (s *Staking) handleCompoundRewards(w http.ResponseWriter, req *http.Request) error {
	user, err := s.userBody(req)
	if err != nil {
		return err
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	folded, err := s.minter.CompoundRewards(user, now)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{"folded": (*math.HexOrDecimal256)(folded)})
}

func (s *Staking) handleSweep(w http.ResponseWriter, req *http.Request) error {
	var body SweepRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "body"))
	}
	caller, err := parseAddr(body.Caller)
	if err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "caller"))
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	swept, gained, err := s.minter.SweepMaturedBuckets(caller, registry.ID(body.Validator), now, body.MaxSweep)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{
		"swept":  swept,
		"gained": (*math.HexOrDecimal256)(gained),
	})
}

func (s *Staking) handleFulfill(w http.ResponseWriter, req *http.Request) error {
	var body FulfillRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "body"))
	}
	caller, err := parseAddr(body.Caller)
	if err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "caller"))
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	processed, paid, err := s.minter.FulfillRequests(caller, body.IDs, now)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{
		"processed": processed,
		"paid":      (*math.HexOrDecimal256)(paid),
	})
}

func (s *Staking) handleFulfillProRata(w http.ResponseWriter, req *http.Request) error {
	var body FulfillRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "body"))
	}
	caller, err := parseAddr(body.Caller)
	if err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "caller"))
	}
	now, err := s.nowParam(req)
	if err != nil {
		return err
	}
	spent, processed, err := s.minter.FulfillProRata(caller, body.IDs, now)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{
		"processed": processed,
		"spent":     (*math.HexOrDecimal256)(spent),
	})
}

func (s *Staking) handleAddBuckets(w http.ResponseWriter, req *http.Request) error {
	var body AddBucketsRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "body"))
	}
	caller, err := parseAddr(body.Caller)
	if err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "caller"))
	}
	if err := s.minter.AddBuckets(caller, registry.ID(body.Validator), body.Count); err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{"ok": true})
}

func (s *Staking) handleSyncValidators(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Caller string `json:"caller"`
	}
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "body"))
	}
	caller, err := parseAddr(body.Caller)
	if err != nil {
		return restutil.BadRequest(pkgerrors.WithMessage(err, "caller"))
	}
	added, err := s.minter.SyncValidators(caller)
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{"added": added})
}

func (s *Staking) handleGetConfig(w http.ResponseWriter, _ *http.Request) error {
	cfg, err := s.minter.Config()
	if err != nil {
		return convertErr(err)
	}
	return restutil.WriteJSON(w, restutil.M{
		"withholdRatioBps": cfg.WithholdRatioBps,
		"instantFeeBps":    cfg.InstantFeeBps,
		"standardFeeBps":   cfg.StandardFeeBps,
		"instantUtilBps":   cfg.InstantUtilBps,
		"penaltyBps":       cfg.PenaltyBps,
		"minStake":         (*math.HexOrDecimal256)(cfg.MinStake),
		"cooldownPeriod":   cfg.CooldownPeriod,
		"bucketWindow":     cfg.BucketWindow,
		"bucketCapacity":   cfg.BucketCapacity,
		"autoOpenBuckets":  cfg.AutoOpenBuckets,
		"instantPaused":    cfg.InstantPaused,
		"feeRecipient":     cfg.FeeRecipient.String(),
	})
}

func (s *Staking) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/accounts/{address}").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetAccount))
	sub.Path("/accounts/{address}/rewards").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetRewards))
	sub.Path("/validators").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetValidators))
	sub.Path("/validators/{id}").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetValidator))
	sub.Path("/validators/{id}/buckets").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetBuckets))
	sub.Path("/requests").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetPending))
	sub.Path("/requests/{id}").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetRequest))
	sub.Path("/buffer").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetBuffer))
	sub.Path("/totals").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetTotals))
	sub.Path("/config").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetConfig))

	sub.Path("/park").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handlePark))
	sub.Path("/park/withdraw").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleWithdrawParked))
	sub.Path("/stake").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleStake))
	sub.Path("/stake/extend-time").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleExtendTime))
	sub.Path("/stake/extend-amount").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleExtendAmount))
	sub.Path("/unstake/request").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleRequestUnstake))
	sub.Path("/unstake/instant").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleInstantUnstake))
	sub.Path("/unstake").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleUnstake))
	sub.Path("/rewards/claim").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleClaimRewards))
	sub.Path("/rewards/compound").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleCompoundRewards))

	sub.Path("/operator/sweep").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleSweep))
	sub.Path("/operator/fulfill").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleFulfill))
	sub.Path("/operator/fulfill/pro-rata").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleFulfillProRata))
	sub.Path("/operator/buckets").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleAddBuckets))
	sub.Path("/operator/sync").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleSyncValidators))
}
