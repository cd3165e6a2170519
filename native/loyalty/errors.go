package loyalty

import coreerrors "fanmarket/core/errors"

var (
	errNilState       = coreerrors.Statef("loyalty: state not configured")
	errInvalidAmount  = coreerrors.Validationf("loyalty: amount must be positive")
	errInvalidTier    = coreerrors.Validationf("loyalty: tier out of range")
	errZeroCount      = coreerrors.Validationf("loyalty: mint count must be positive")
	errZeroAccount    = coreerrors.Validationf("loyalty: account cannot be the zero address")
	errNotOwner       = coreerrors.Authorizationf("loyalty: caller is not the platform owner")
	errMintGateClosed = coreerrors.Authorizationf("not authorized to mint")
)
