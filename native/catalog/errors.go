package catalog

import coreerrors "fanmarket/core/errors"

var (
	errNilState          = coreerrors.Statef("catalog engine: state not configured")
	errProductNotFound   = coreerrors.Statef("product does not exist")
	errNameRequired      = coreerrors.Validationf("catalog engine: product name required")
	errInvalidPrice      = coreerrors.Validationf("catalog engine: price must be positive")
	errZeroRecipient     = coreerrors.Validationf("catalog engine: royalty recipient cannot be the zero address")
	errSplitsExceedTotal = coreerrors.Validationf("catalog engine: royalty splits exceed 10000 bps")
	errSplitsMismatched  = coreerrors.Validationf("catalog engine: royalty recipient and share arrays differ in length")
	errRoyaltyBpsTooHigh = coreerrors.Validationf("catalog engine: resale royalty bps exceed 10000")
	errInvalidTierGrant  = coreerrors.Validationf("catalog engine: tier grant out of range")
	errNotProductOwner   = coreerrors.Authorizationf("catalog engine: caller does not control product")
)
