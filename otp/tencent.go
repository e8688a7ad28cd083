package otp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	sms "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/sms/v20210111"
)

const (
	DefaultSMSRegion = "ap-guangzhou"

	smsEndpoint = "sms.tencentcloudapi.com"
	phonePrefix = "+86"
	statusOK    = "Ok"
)

var ErrSMSNotConfigured = errors.New("otp: tencent sms credentials are incomplete")

type TencentConfig struct {
	SecretID   string
	SecretKey  string
	SdkAppID   string
	TemplateID string
	SignName   string
	Region     string
}

// Complete reports whether every setting the gateway needs is present
func (c *TencentConfig) Complete() bool {
	return c.SecretID != "" && c.SecretKey != "" && c.SdkAppID != "" && c.TemplateID != "" && c.SignName != ""
}

// smsClient is the part of the sdk client we use
type smsClient interface {
	SendSmsWithContext(ctx context.Context, request *sms.SendSmsRequest) (*sms.SendSmsResponse, error)
}

// TencentSender sends codes through Tencent Cloud SMS
type TencentSender struct {
	client     smsClient
	appID      string
	templateID string
	signName   string
}

func NewTencentSender(conf *TencentConfig) (*TencentSender, error) {
	if conf == nil || !conf.Complete() {
		return nil, ErrSMSNotConfigured
	}

	region := conf.Region
	if region == "" {
		region = DefaultSMSRegion
	}

	cred := common.NewCredential(conf.SecretID, conf.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = smsEndpoint

	client, err := sms.NewClient(cred, region, cpf)
	if err != nil {
		return nil, fmt.Errorf("tencent sms client: %w", err)
	}

	return newTencentSender(client, conf), nil
}

func newTencentSender(client smsClient, conf *TencentConfig) *TencentSender {
	return &TencentSender{
		client:     client,
		appID:      conf.SdkAppID,
		templateID: conf.TemplateID,
		signName:   conf.SignName,
	}
}

// Send fills the template with the code and its validity in whole minutes
func (t *TencentSender) Send(ctx context.Context, phone, code string, validFor time.Duration) error {
	req := sms.NewSendSmsRequest()
	req.PhoneNumberSet = common.StringPtrs([]string{phonePrefix + phone})
	req.SmsSdkAppId = common.StringPtr(t.appID)
	req.TemplateId = common.StringPtr(t.templateID)
	req.SignName = common.StringPtr(t.signName)
	req.TemplateParamSet = common.StringPtrs([]string{code, minutes(validFor)})

	resp, err := t.client.SendSmsWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}

	if resp == nil || resp.Response == nil || len(resp.Response.SendStatusSet) == 0 {
		return errors.New("send sms: empty response from gateway")
	}

	status := resp.Response.SendStatusSet[0]
	if status == nil || status.Code == nil || *status.Code != statusOK {
		msg := ""
		if status != nil && status.Message != nil {
			msg = *status.Message
		}
		return fmt.Errorf("send sms: gateway rejected message: %s", msg)
	}
	return nil
}

// minutes rounds up so a code is never announced as shorter-lived than it is
func minutes(d time.Duration) string {
	m := int(math.Ceil(d.Minutes()))
	if m < 1 {
		m = 1
	}
	return strconv.Itoa(m)
}
