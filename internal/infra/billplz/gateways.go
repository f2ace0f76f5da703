package billplz

// 支払いチャネルごとの bank code → 表示名
type Catalog struct {
	FPX     map[string]string `json:"fpx"`
	EWallet map[string]string `json:"ewallet"`
	Card    map[string]string `json:"card"`
}

func Gateways() Catalog {
	return Catalog{
		FPX: map[string]string{
			"MB2U0227": "Maybank2u",
			"BCBB0235": "CIMB Clicks",
			"PBB0233":  "Public Bank (PBe)",
			"RHB0218":  "RHB Now",
			"HLB0224":  "HLB Connect",
			"ABMB0212": "Alliance Online",
			"AMBB0209": "AmOnline",
			"BIMB0340": "Bank Islam",
			"BMMB0341": "Bank Muamalat",
			"BKRM0602": "Bank Rakyat",
		},
		EWallet: map[string]string{
			"BP-BST01":    "Boost",
			"BP-TNG01":    "TouchNGo",
			"BP-2C2PGRB":  "Grab",
			"BP-2C2PSHPE": "Shopee Pay",
		},
		Card: map[string]string{
			DefaultBankCode: "Visa/Mastercard (Billplz)",
			"BP-PPL01":      "PayPal",
		},
	}
}
