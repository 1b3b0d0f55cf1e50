package opq

import "github.com/goccy/go-json"

// Response is the getUserData envelope.
type Response struct {
	OPQ Opq `json:"OPQ"`
	// Anomalies lists coerced values that were accepted with a warning.
	Anomalies []Anomaly `json:"-"`
}

// Opq is the account snapshot.
type Opq struct {
	Rev           Int               `json:"rev"`
	InitMargin    Int               `json:"init_margin"`
	BriefName     string            `json:"brief_nm"`
	Reception     Int               `json:"reception"`
	Active        Int               `json:"active"`
	Source        string            `json:"source"`
	HomeCurrency  string            `json:"homeCurrency"`
	Quotes        Quotes            `json:"quotes"`
	Portfolio     PortfolioSummary  `json:"ps"`
	Orders        Orders            `json:"orders"`
	Sessions      []json.RawMessage `json:"sess"`
	Markets       MarketsEnvelope   `json:"markets"`
	OffBalance    OffBalance        `json:"offbalance"`
	UserLists     UserLists         `json:"userLists"`
	NoOrderGrowls OptText           `json:"NO_ORDER_GROWLS"`
	UserInfo      UserInfo          `json:"userInfo"`
	UserOptions   UserOptions       `json:"userOptions"`
}

// Quotes wraps the watched instruments.
type Quotes struct {
	Q []Quote `json:"q"`
}

// Quote is a watched instrument as embedded in the snapshot. Every field is optional.
type Quote struct {
	ACD                   OptFloat `json:"acd"`
	BestAskPrice          OptFloat `json:"bap"`
	BestAskSize           OptFloat `json:"bas"`
	BestBidPrice          OptFloat `json:"bbp"`
	BestBidSize           OptFloat `json:"bbs"`
	Change                OptFloat `json:"chg"`
	Change110             OptFloat `json:"chg110"`
	Change22              OptFloat `json:"chg22"`
	Change220             OptFloat `json:"chg220"`
	Change5               OptFloat `json:"chg5"`
	ClosePrice            OptFloat `json:"ClosePrice"`
	Coupon                OptFloat `json:"cpn"`
	FaceValue             OptFloat `json:"fv"`
	LastPrice             OptFloat `json:"ltp"`
	LastSize              OptFloat `json:"lts"`
	MaxPrice              OptFloat `json:"maxtp"`
	MinStep               OptFloat `json:"min_step"`
	MinPrice              OptFloat `json:"mintp"`
	OpenPrice             OptFloat `json:"op"`
	Price110              OptFloat `json:"p110"`
	Price22               OptFloat `json:"p22"`
	Price220              OptFloat `json:"p220"`
	Price5                OptFloat `json:"p5"`
	PrevClosePercent      OptFloat `json:"pcp"`
	PrevPrice             OptFloat `json:"pp"`
	StepPrice             OptFloat `json:"step_price"`
	TradingReferencePrice OptFloat `json:"TradingReferencePrice"`
	Volatility            OptFloat `json:"vlt"`
	Volume                OptFloat `json:"vol"`
	CurrencyValue         OptFloat `json:"x_currVal"`
	Lot                   OptFloat `json:"x_lot"`
	Max                   OptFloat `json:"x_max"`
	Min                   OptFloat `json:"x_min"`
	Yield                 OptFloat `json:"yld"`

	BestAskFlag   OptInt `json:"baf"`
	BestBidFlag   OptInt `json:"bbf"`
	CouponPeriod  OptInt `json:"cpp"`
	DPB           OptInt `json:"dpb"`
	DPS           OptInt `json:"dps"`
	Init          OptInt `json:"init"`
	Kind          OptInt `json:"kind"`
	N             OptInt `json:"n"`
	NCP           OptInt `json:"ncp"`
	Rev           OptInt `json:"rev"`
	StrikePrice   OptInt `json:"strike_price"`
	Trades        OptInt `json:"trades"`
	Type          OptInt `json:"type"`
	UTCOffset     OptInt `json:"UTCOffset"`
	Discount1     OptInt `json:"x_dsc1"`
	Discount2     OptInt `json:"x_dsc2"`
	Discount3     OptInt `json:"x_dsc3"`
	IsTrade       OptInt `json:"x_istrade"`
	Short         OptInt `json:"x_short"`
	YieldToMatAsk OptInt `json:"yld_ytm_ask"`
	YieldToMatBid OptInt `json:"yld_ytm_bid"`

	BaseContractCode OptText `json:"base_contract_code"`
	BaseCurrency     OptText `json:"base_currency"`
	BaseTicker       OptText `json:"base_ltr"`
	MinLotQuantity   OptText `json:"x_min_lot_q"`

	Ticker              *string `json:"c"`
	CodeSubName         *string `json:"codesub_nm"`
	EmitentType         *string `json:"emitent_type"`
	IssueNumber         *string `json:"issue_nb"`
	Exchange            *string `json:"ltr"`
	LastTradeTime       *string `json:"ltt"`
	MarketStatus        *string `json:"marketStatus"`
	Margin              *string `json:"mrg"`
	MTD                 *string `json:"mtd"`
	Name                *string `json:"name"`
	Name2               *string `json:"name2"`
	NextCouponDate      *string `json:"ncd"`
	OptionType          *string `json:"option_type"`
	OTCInstrument       *string `json:"otc_instr"`
	QuoteBasis          *string `json:"quote_basis"`
	SchemeCalc          *string `json:"scheme_calc"`
	TradingSessionSubID *string `json:"TradingSessionSubID"`
	VirtualBase         *string `json:"virt_base_instr"`
	AggFutures          *string `json:"x_agg_futures"`
	Currency            *string `json:"x_curr"`
	Description         *string `json:"x_descr"`
	Discount1Reception  *string `json:"x_dsc1_reception"`
	ShortReception      *string `json:"x_short_reception"`

	IPO json.RawMessage `json:"ipo"`
}

// PortfolioSummary holds cash balances and open positions.
type PortfolioSummary struct {
	Loaded    bool                `json:"loaded"`
	Accounts  []PortfolioAccount  `json:"acc"`
	Positions []PortfolioPosition `json:"pos"`
}

// PortfolioAccount is a cash balance in one currency.
type PortfolioAccount struct {
	Currency     string `json:"curr"`
	CurrencyRate Float  `json:"currval"`
	ForecastIn   Float  `json:"forecast_in"`
	ForecastOut  Float  `json:"forecast_out"`
	T2In         Float  `json:"t2_in"`
	T2Out        Float  `json:"t2_out"`
	Amount       Float  `json:"s"`
}

// PortfolioPosition is a single open position.
type PortfolioPosition struct {
	OpenBalance     Float  `json:"open_bal"`
	MarketPrice     Float  `json:"mkt_price"`
	ProfitPrice     Float  `json:"profit_price"`
	AccruedInterest Float  `json:"accruedint_a"`
	ACD             Float  `json:"acd"`
	BalancePrice    Float  `json:"bal_price_a"`
	Price           Float  `json:"price_a"`
	FaceValueA      Float  `json:"face_val_a"`
	ProfitClose     Float  `json:"profit_close"`
	MarketValue     Float  `json:"market_value"`
	ClosePrice      Float  `json:"close_price"`
	CurrencyRate    Float  `json:"currval"`
	Amount          Float  `json:"s"`
	Name            string `json:"name"`
	Ticker          string `json:"i"`
	SchemeCalc      string `json:"scheme_calc"`
	IssueNumber     string `json:"issue_nb"`
	BaseCurrency    string `json:"base_currency"`
	Currency        string `json:"curr"`
	Name2           string `json:"name2"`
	Type            Int    `json:"t"`
	Yield           Int    `json:"Yield"`
	AccountPosID    Int    `json:"acc_pos_id"`
	K               Int    `json:"k"`
	Go              Int    `json:"go"`
	FaceValue       Int    `json:"fv"`
	VariationMargin Int    `json:"vm"`
	Quantity        Int    `json:"q"`
	InstrumentID    OptInt `json:"instr_id"`
}

// Orders carries active orders as raw entries.
type Orders struct {
	Loaded bool              `json:"loaded"`
	Order  []json.RawMessage `json:"order"`
}

// MarketsEnvelope wraps the exchange list.
type MarketsEnvelope struct {
	Markets MarketList `json:"markets"`
}

// MarketList is the list of exchanges.
type MarketList struct {
	T string   `json:"t"`
	M []Market `json:"m"`
}

// Market describes one exchange and its schedule.
type Market struct {
	Name   string        `json:"n"`
	Name2  string        `json:"n2"`
	Status string        `json:"s"`
	Open   string        `json:"o"`
	Close  string        `json:"c"`
	DT     Int           `json:"dt"`
	Pre    OptText       `json:"p"`
	Post   OptText       `json:"post"`
	Dates  []MarketDate  `json:"date"`
	Events []MarketEvent `json:"ev"`
}

// MarketDate is a special trading day or holiday.
type MarketDate struct {
	From        Text   `json:"from"`
	To          Text   `json:"to"`
	DayOff      Int    `json:"dayoff"`
	Description string `json:"desc"`
}

// MarketEvent is a scheduled exchange event.
type MarketEvent struct {
	ID   string `json:"id"`
	T    string `json:"t"`
	Next string `json:"next"`
}

// OffBalance holds assets kept outside the trading balance.
type OffBalance struct {
	NetAssets Int               `json:"net_assets"`
	Positions []json.RawMessage `json:"pos"`
	Accounts  []json.RawMessage `json:"acc"`
}

// UserLists holds the watchlists and the selected one.
type UserLists struct {
	StockLists  StockLists `json:"userStockLists"`
	Selected    string     `json:"userStockListSelected"`
	StocksArray []string   `json:"stocksArray"`
}

// UserInfo is the profile block. Every field is optional.
type UserInfo struct {
	ID                     OptInt `json:"id"`
	GroupID                OptInt `json:"group_id"`
	Active                 OptInt `json:"f_active"`
	Demo                   OptInt `json:"f_demo"`
	StatusID               OptInt `json:"status_id"`
	Robot                  OptInt `json:"robot"`
	AdditionalStatus       OptInt `json:"additional_status"`
	Reception              OptInt `json:"reception"`
	ReceptionService       OptInt `json:"reception_service"`
	ManagerUserID          OptInt `json:"manager_user_id"`
	OriginalClientUserID   OptInt `json:"original_client_user_id"`
	Role                   OptInt `json:"role"`
	Qualified              OptInt `json:"f_kval"`
	EmailConfirm           OptInt `json:"email_confirm"`
	BlocksCount            OptInt `json:"blocks_count"`
	CurrentlyAvailableIPOs OptInt `json:"currentlyAvailableIpos"`
	IsSubscribedToNewIPOs  OptInt `json:"isSubscribedToNewIpos"`

	Sex               OptText `json:"sex"`
	UTMCampaign       OptText `json:"utm_campaign"`
	Description       OptText `json:"description"`
	FacebookUID       OptText `json:"fb_uid"`
	MinimumInvestment OptText `json:"minimum_investment"`
	BriefNameExtra    OptText `json:"briefnm_additional"`
	GoogleID          OptText `json:"google_id"`
	Country           OptText `json:"country"`
	ContactID         OptText `json:"contact_id"`
	DateClose         OptText `json:"client_date_close"`

	Login                 *string `json:"login"`
	LastName              *string `json:"lastname"`
	FirstName             *string `json:"firstname"`
	MiddleName            *string `json:"middlename"`
	LastFirstMiddleName   *string `json:"last_first_middle_name"`
	FirstLastName         *string `json:"first_last_name"`
	Email                 *string `json:"email"`
	ModTimestamp          *string `json:"mod_tmstmp"`
	RecTimestamp          *string `json:"rec_tmstmp"`
	LastVisitTimestamp    *string `json:"last_visit_tmstmp"`
	UModTimestamp         *string `json:"umod_tmstmp"`
	DateTSMod             *string `json:"date_tsmod"`
	DateLastRequest       *string `json:"date_last_request"`
	TraderSystemsID       *string `json:"trader_systems_id"`
	Birthday              *string `json:"birthday"`
	Citizenship           *string `json:"citizenship"`
	CitizenshipCode       *string `json:"citizenship_code"`
	Status                *string `json:"status"`
	Type                  *string `json:"type"`
	AuthLogin             *string `json:"auth_login"`
	SettlementPair        *string `json:"settlement_pair"`
	Phone                 *string `json:"tel"`
	Language              *string `json:"language"`
	ProfileName           *string `json:"profilename"`
	INN                   *string `json:"inn"`
	RoleName              *string `json:"role_name"`
	DateOpenReal          *string `json:"date_open_real"`
	DocNumber             *string `json:"numdoc"`
	DocSeries             *string `json:"docseries"`
	RegName               *string `json:"regname"`
	RegCode               *string `json:"regcode"`
	DocDate               *string `json:"datedoc"`
	Documents             *string `json:"documents"`
	BornPlace             *string `json:"bornplace"`
	AccountBlockDate      *string `json:"account_block_date"`
	DateClientDocReceived *string `json:"date_client_doc_received"`
	IIS                   *string `json:"iis"`
	IsLeadAccount         *string `json:"isleadaccount"`
	MarketCodes           *string `json:"mkt_codes"`
	ObjectType            *string `json:"object_type"`
	RegisteredAtDomain    *string `json:"registered_at_domain"`

	IsIPOAvailable               *bool `json:"isIpoAvailable"`
	IsStockBonusAvailable        *bool `json:"isStockBonusAvailable"`
	StockBonusIDKey              *bool `json:"stockBonusIdKey"`
	KassaNovaInvestCardAvailable *bool `json:"kassaNovaInvestCardAvailable"`

	MessagesCounts *MessagesCounts  `json:"messages_counts"`
	TariffDetails  *TariffDetails   `json:"tariffDetails"`
	Details        *UserInfoDetails `json:"details"`
}

// MessagesCounts reports inbox totals.
type MessagesCounts struct {
	NoRead OptInt `json:"no_read"`
	All    OptInt `json:"all"`
}

// TariffDetails names the active tariff.
type TariffDetails struct {
	ID       OptInt  `json:"id"`
	Name     *string `json:"name"`
	Currency *string `json:"curr"`
}

// UserInfoDetails holds KYC and profile annotations.
type UserInfoDetails struct {
	IIS                    *string `json:"iis"`
	Comment                *string `json:"comment"`
	PassportCheck          *string `json:"passport_check"`
	PassportCheckDate      *string `json:"passport_check_date"`
	PersonalAnketaLastDate *string `json:"personal_anketa_last_date"`
	DateRegister           *string `opq:"Date register"`
	DateOpenReal           *string `opq:"Date open real"`
	UTMCampaignRegister    *string `opq:"utm_campaign - Register"`

	Push              *PushDetails `json:"push"`
	SmevSMS           OptText      `json:"smev_sms"`
	TelegramID        OptText      `json:"telegram_id"`
	InitialTelegramID OptText      `json:"initial_telegram_id"`
	UTMCampaignReal   OptText      `opq:"utm_campaign - to Real"`

	Statuses    map[string]string `json:"statuses"`
	MarketCodes map[string]string `json:"mkt_codes"`

	TelegramBot   *bool `json:"telegram_bot"`
	IsLeadAccount *bool `json:"isLeadAccount"`

	MailSubscription         OptInt `json:"mail_subscription"`
	TelegramLastUpdatedAt    OptInt `json:"telegram_last_updated_at"`
	DetectedReceptionService OptInt `json:"detected_reception_service"`

	FFinBankRequisites   *BankRequisites `json:"ffinbank_requisites"`
	LastShownDateMessage map[string]Int  `json:"lastShownDateMessage"`
}

// PushDetails holds push notification registrations.
type PushDetails struct {
	AndroidTN *string `json:"android_tn"`
}

// BankRequisites is the cached bank details lookup.
type BankRequisites struct {
	DateMod  *string               `json:"date_mod"`
	Response *BankRequisitesResult `json:"response"`
}

// BankRequisitesResult lists the linked bank accounts.
type BankRequisitesResult struct {
	Accounts []BankAccount `json:"Accounts"`
}

// BankAccount is one linked bank account.
type BankAccount struct {
	Number   *string `json:"Number"`
	Passport *string `json:"Passport"`
}

// UserOptions holds terminal display preferences.
type UserOptions struct {
	CostOpen           OptInt `json:"cost_open"`
	CostLast           OptInt `json:"cost_last"`
	CostLow            OptInt `json:"cost_low"`
	CostHigh           OptInt `json:"cost_high"`
	BidLast            OptInt `json:"bid_last"`
	OfferLast          OptInt `json:"offer_last"`
	Volume             OptInt `json:"volume"`
	GraphicType        OptInt `json:"graphic_type"`
	Transaction        OptInt `json:"f_transaction"`
	CompareIndex       OptInt `json:"f_compare_index"`
	ProfileType        OptInt `json:"profile_type"`
	ShowPortfolioBlock OptInt `json:"showPortfolioBlock"`
	PageFirstTabOpen   OptInt `json:"pageFirstTabOpen"`
	AccessCost         OptInt `json:"access_cost"`

	GraphicFormat        *string `json:"graphic_format"`
	Period               *string `json:"period"`
	TimePeriod           *string `json:"time_period"`
	Interval             *string `json:"interval"`
	DateFrom             *string `json:"date_from"`
	DateTo               *string `json:"date_to"`
	APISecret            *string `json:"api_secret"`
	GraphicIndicators    *string `json:"graphic_indicators"`
	Cover                *string `json:"cover"`
	Theme                *string `json:"theme"`
	ShowTransactionsMode *string `json:"showTransactionsMode"`

	GridPortfolio []string `json:"gridPortfolio"`
}

// Position returns the first position for ticker.
func (o *Opq) Position(ticker string) (PortfolioPosition, bool) {
	for _, p := range o.Portfolio.Positions {
		if p.Ticker == ticker {
			return p, true
		}
	}
	return PortfolioPosition{}, false
}

// Balance returns the cash account in the given currency.
func (o *Opq) Balance(currency string) (PortfolioAccount, bool) {
	for _, a := range o.Portfolio.Accounts {
		if a.Currency == currency {
			return a, true
		}
	}
	return PortfolioAccount{}, false
}
