// Package payment signs VNPay redirect URLs and verifies the provider's
// return callbacks.
package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/models"
)

const (
	vnpVersion   = "2.1.0"
	vnpCommand   = "pay"
	vnpCurrency  = "VND"
	vnpLocale    = "vn"
	vnpOrderType = "other"
	vnpTimeFmt   = "20060102150405"

	// ResponseSuccess is the vnp_ResponseCode of an approved payment.
	ResponseSuccess = "00"

	// Payment links expire after this long.
	paymentWindow = 15 * time.Minute
)

var (
	// ErrInvalidSignature means vnp_SecureHash does not match the parameters.
	ErrInvalidSignature = errors.New("invalid payment signature")
	// ErrMalformedReturn means a required return parameter is missing or unparsable.
	ErrMalformedReturn = errors.New("malformed payment return")
)

// VNPay vnp_CreateDate is in Vietnam local time.
var vnLocation = time.FixedZone("ICT", 7*60*60)

type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

// VNPay builds and verifies signed VNPay requests.
type VNPay struct {
	cfg VNPayConfig
}

func NewVNPay(cfg VNPayConfig) *VNPay {
	return &VNPay{cfg: cfg}
}

// ReturnResult is what the provider reported on the return URL.
type ReturnResult struct {
	TxnRef        string
	Amount        int64 // in VND, already divided by 100
	ResponseCode  string
	TransactionNo string
	BankCode      string
}

// Success reports whether the provider approved the payment.
func (r ReturnResult) Success() bool {
	return r.ResponseCode == ResponseSuccess
}

// BuildPaymentURL returns the redirect URL for paying order from clientIP.
func (v *VNPay) BuildPaymentURL(order *models.Order, clientIP string, now time.Time) (string, error) {
	if v.cfg.PayURL == "" || v.cfg.HashSecret == "" || v.cfg.TmnCode == "" {
		return "", fmt.Errorf("vnpay is not configured")
	}
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}
	local := now.In(vnLocation)

	params := url.Values{}
	params.Set("vnp_Version", vnpVersion)
	params.Set("vnp_Command", vnpCommand)
	params.Set("vnp_TmnCode", v.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(order.Amount*100, 10))
	params.Set("vnp_CurrCode", vnpCurrency)
	params.Set("vnp_TxnRef", order.ID)
	params.Set("vnp_OrderInfo", "Thanh toan don hang "+order.ID)
	params.Set("vnp_OrderType", vnpOrderType)
	params.Set("vnp_Locale", vnpLocale)
	params.Set("vnp_ReturnUrl", v.cfg.ReturnURL)
	params.Set("vnp_IpAddr", clientIP)
	params.Set("vnp_CreateDate", local.Format(vnpTimeFmt))
	params.Set("vnp_ExpireDate", local.Add(paymentWindow).Format(vnpTimeFmt))

	query := params.Encode()
	params.Set("vnp_SecureHash", v.sign(query))

	sep := "?"
	if strings.Contains(v.cfg.PayURL, "?") {
		sep = "&"
	}
	return v.cfg.PayURL + sep + params.Encode(), nil
}

// VerifyReturn checks the signature of the return query and extracts the result.
func (v *VNPay) VerifyReturn(query url.Values) (ReturnResult, error) {
	got := query.Get("vnp_SecureHash")
	if got == "" {
		return ReturnResult{}, fmt.Errorf("%w: missing vnp_SecureHash", ErrInvalidSignature)
	}

	want := v.sign(signable(query).Encode())
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
		return ReturnResult{}, ErrInvalidSignature
	}

	res := ReturnResult{
		TxnRef:        query.Get("vnp_TxnRef"),
		ResponseCode:  query.Get("vnp_ResponseCode"),
		TransactionNo: query.Get("vnp_TransactionNo"),
		BankCode:      query.Get("vnp_BankCode"),
	}
	if res.TxnRef == "" {
		return ReturnResult{}, fmt.Errorf("%w: missing vnp_TxnRef", ErrMalformedReturn)
	}
	raw, err := strconv.ParseInt(query.Get("vnp_Amount"), 10, 64)
	if err != nil {
		return ReturnResult{}, fmt.Errorf("%w: vnp_Amount: %v", ErrMalformedReturn, err)
	}
	if raw <= 0 || raw%100 != 0 {
		return ReturnResult{}, fmt.Errorf("%w: vnp_Amount %d is not a positive whole amount", ErrMalformedReturn, raw)
	}
	res.Amount = raw / 100
	return res, nil
}

// SignQuery returns params with vnp_SecureHash set, the way the provider
// signs its return callbacks.
func (v *VNPay) SignQuery(params url.Values) url.Values {
	out := signable(params)
	out.Set("vnp_SecureHash", v.sign(out.Encode()))
	return out
}

// signable keeps the non-empty vnp_ parameters that take part in the hash.
func signable(query url.Values) url.Values {
	out := url.Values{}
	for k, vals := range query {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" || !strings.HasPrefix(k, "vnp_") {
			continue
		}
		if len(vals) > 0 && vals[0] != "" {
			out.Set(k, vals[0])
		}
	}
	return out
}

// url.Values.Encode sorts by key, which is the canonical order VNPay signs.
func (v *VNPay) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(v.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
