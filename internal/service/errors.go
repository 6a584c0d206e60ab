package service

import "errors"

var (
	ErrMerchantNotFound   = errors.New("merchant not found")
	ErrSignInvalid        = errors.New("submission sign invalid")
	ErrOrderNotFound      = errors.New("order not found")
	ErrUnsupportedChannel = errors.New("unsupported channel")
	ErrAlipayNotEnabled   = errors.New("alipay channel not configured")
	ErrWxpayNotEnabled    = errors.New("wxpay channel not configured")
	ErrCreateOrderFailed  = errors.New("create order failed")
	ErrEmptyParams        = errors.New("required params missing")
	ErrChannelInstance    = errors.New("channel instance not found")
)
