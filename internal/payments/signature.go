package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignSettlement computes the gateway settlement signature:
// HMAC-SHA256 over "order_id|payment_id" keyed with the gateway secret.
func SignSettlement(keySecret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySettlementSignature checks the provided signature in constant time.
func VerifySettlementSignature(keySecret, orderID, paymentID, signature string) bool {
	expected := SignSettlement(keySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
